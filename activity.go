package tokens

import (
	"context"
	"time"

	"github.com/goliatone/go-print"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventImpersonationSuccess  ActivityEventType = "auth.impersonation.success"
	ActivityEventImpersonationFailure  ActivityEventType = "auth.impersonation.failure"
	ActivityEventUserRegistered        ActivityEventType = "user.registered"
	ActivityEventConfirmationRequested ActivityEventType = "account.confirmation.requested"
	ActivityEventAccountConfirmed      ActivityEventType = "account.confirmed"
	ActivityEventPasswordResetRequest  ActivityEventType = "auth.password.reset.requested"
	ActivityEventPasswordResetSuccess  ActivityEventType = "auth.password.reset"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LoggingActivitySink writes events to the logger. Handy default sink
// for development wiring.
type LoggingActivitySink struct {
	logger Logger
}

// NewLoggingActivitySink creates a sink backed by the given logger.
func NewLoggingActivitySink(logger Logger) *LoggingActivitySink {
	if logger == nil {
		logger = defaultLogger("activity")
	}
	return &LoggingActivitySink{logger: logger}
}

// Record implements ActivitySink.
func (s *LoggingActivitySink) Record(_ context.Context, event ActivityEvent) error {
	s.logger.Info("activity recorded",
		"event_type", string(event.EventType),
		"user_id", event.UserID,
		"actor", event.Actor.ID,
		"metadata", print.MaybePrettyJSON(event.Metadata),
	)
	return nil
}
