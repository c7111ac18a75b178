package accounts

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered    ActivityEventType = "account.registered"
	ActivityEventEmailVerified        ActivityEventType = "account.email.verified"
	ActivityEventVerificationResent   ActivityEventType = "account.email.code_resent"
	ActivityEventProfileUpdated       ActivityEventType = "account.profile.updated"
	ActivityEventAvatarUpdated        ActivityEventType = "account.avatar.updated"
	ActivityEventStatusChanged        ActivityEventType = "account.status.changed"
	ActivityEventRoleChanged          ActivityEventType = "account.role.changed"
	ActivityEventCreatorApplied       ActivityEventType = "account.creator.applied"
	ActivityEventCreatorApproved      ActivityEventType = "account.creator.approved"
	ActivityEventCreatorRejected      ActivityEventType = "account.creator.rejected"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefreshed       ActivityEventType = "auth.token.refreshed"
	ActivityEventPasswordResetRequest ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventPasswordChanged      ActivityEventType = "auth.password.changed"
	ActivityEventNotificationFailure  ActivityEventType = "notification.failure"
	ActivityEventAdminBootstrapped    ActivityEventType = "account.admin.bootstrapped"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	From       string
	To         string
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

// MultiActivitySink fans an event out to every sink.
type MultiActivitySink []ActivitySink

// Record implements ActivitySink. All sinks run; their errors are joined.
func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
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

// recordActivity stamps and emits event; sink failures are only logged.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("activity sink failed", "event", event.EventType, "account", event.AccountID, "error", err)
	}
}
