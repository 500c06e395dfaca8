package tokens

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestConfirmationMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *RequestConfirmationResponse)
}

func (e RequestConfirmationMessage) Type() string { return "account.confirmation_request" }

type RequestConfirmationResponse struct {
	User *User
	// Token goes into the confirmation link the caller emails out.
	Token string
	// Found stays false for unknown emails. The operation still
	// succeeds so callers cannot probe which accounts exist.
	Found            bool
	AlreadyConfirmed bool
	Success          bool
}

type RequestConfirmationHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewRequestConfirmationHandler creates a handler with sane defaults.
func NewRequestConfirmationHandler(repo RepositoryManager) *RequestConfirmationHandler {
	return &RequestConfirmationHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defaultLogger("tokens"),
	}
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *RequestConfirmationHandler) WithActivitySink(sink ActivitySink) *RequestConfirmationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestConfirmationHandler) WithLogger(logger Logger) *RequestConfirmationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestConfirmationHandler) Execute(ctx context.Context, event RequestConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during confirmation request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestConfirmationHandler) execute(ctx context.Context, event RequestConfirmationMessage) error {
	resp := &RequestConfirmationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err != nil {
			// unknown emails are part of the expected flow, not an application error
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation request")
		}

		resp.Found = true

		if user.IsConfirmed() {
			resp.User = user
			resp.AlreadyConfirmed = true
			return nil
		}

		token, err := NewStoredToken()
		if err != nil {
			return err
		}

		if user, err = h.repo.Users().SaveConfirmationTokenTx(ctx, tx, user.ID, token, time.Now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store confirmation token")
		}

		resp.User = user
		resp.Token = token

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize confirmation request")
	}

	if resp.Token != "" {
		h.recordActivity(ctx, resp.User)
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestConfirmationHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventConfirmationRequested,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID: user.ID.String(),
		Metadata: map[string]any{
			"email": user.Email,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during confirmation request", "error", err)
	}
}
