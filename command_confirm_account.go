package tokens

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	Token      string `json:"token" doc:"Confirmation token from the emailed link."`
	OnResponse func(resp *ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

type ConfirmAccountResponse struct {
	User    *User
	Success bool
}

type ConfirmAccountHandler struct {
	repo          RepositoryManager
	activity      ActivitySink
	logger        Logger
	tokenValidity time.Duration
}

// NewConfirmAccountHandler creates a handler with sane defaults.
func NewConfirmAccountHandler(repo RepositoryManager) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{
		repo:          repo,
		activity:      noopActivitySink{},
		logger:        defaultLogger("tokens"),
		tokenValidity: DefaultConfirmationTokenValidity,
	}
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *ConfirmAccountHandler) WithActivitySink(sink ActivitySink) *ConfirmAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ConfirmAccountHandler) WithLogger(logger Logger) *ConfirmAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenValidity overrides how long confirmation tokens stay valid.
func (h *ConfirmAccountHandler) WithTokenValidity(d time.Duration) *ConfirmAccountHandler {
	if d > 0 {
		h.tokenValidity = d
	}
	return h
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	resp := &ConfirmAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByConfirmationTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("invalid or expired confirmation token", goerrors.CategoryNotFound).
					WithTextCode(TextCodeTokenNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve confirmation request")
		}

		if !CheckTokenAge(user.ConfirmationSentAt, h.tokenValidity) {
			return goerrors.New("confirmation token has expired", goerrors.CategoryValidation).
				WithTextCode(TextCodeTokenExpired)
		}

		if user, err = h.repo.Users().ConfirmTx(ctx, tx, user.ID, time.Now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account as confirmed")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
	}

	h.recordActivity(ctx, resp.User)

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ConfirmAccountHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountConfirmed,
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
		h.logger.Warn("activity sink error during account confirmation", "error", err)
	}
}
