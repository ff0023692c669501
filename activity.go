package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventOTPIssued         ActivityEventType = "auth.otp.issued"
	ActivityEventAccountConfirmed  ActivityEventType = "account.confirmed"
	ActivityEventAccountApproved   ActivityEventType = "account.approved"
	ActivityEventAccountRegistered ActivityEventType = "account.registered"
	ActivityEventPasswordChanged   ActivityEventType = "auth.password.changed"
	ActivityEventPasswordRecovered ActivityEventType = "auth.password.recovered"
	ActivityEventPostCreated       ActivityEventType = "post.created"
	ActivityEventCommentCreated    ActivityEventType = "post.comment.created"
)

// ActorRef identifies who/what triggered an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus AccountStatus
	ToStatus   AccountStatus
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

func accountActor(acc *Account) ActorRef {
	if acc == nil {
		return ActorRef{Type: "anonymous"}
	}
	return ActorRef{ID: acc.ID.String(), Type: "user"}
}
