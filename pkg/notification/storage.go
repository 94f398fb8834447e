package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transition carries the optional field updates applied together with a
// guarded status change.
type transition struct {
	errMsg  *string
	sentAt  *time.Time
	clearEr bool
}

// TransitionOption customizes a guarded status update.
type TransitionOption func(*transition)

// WithError records the last error text alongside the transition.
func WithError(msg string) TransitionOption {
	return func(t *transition) {
		t.errMsg = &msg
	}
}

// WithSentAt records the provider-accepted timestamp alongside the transition.
func WithSentAt(at time.Time) TransitionOption {
	return func(t *transition) {
		t.sentAt = &at
	}
}

// WithClearError resets the last error text alongside the transition.
func WithClearError() TransitionOption {
	return func(t *transition) {
		t.clearEr = true
	}
}

// Storage handles notification record persistence. All status mutation
// goes through Transition, which enforces the state machine's optimistic
// guard: the update is applied only when the record's current status is
// a valid source for the target status, otherwise ErrStaleTransition is
// returned. This is what keeps the two concurrent writers (delivery
// worker and webhook ingestion) from clobbering each other.
type Storage interface {
	// Create stores a new notification record.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a single notification record.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// Transition applies a guarded status change with optional field updates.
	Transition(ctx context.Context, id uuid.UUID, to Status, opts ...TransitionOption) error

	// RecordRetry updates the retry bookkeeping after a failed attempt.
	RecordRetry(ctx context.Context, id uuid.UUID, retryCount int, errMsg string, nextRetryAt time.Time) error

	// SetFailoverChannel assigns the failover channel. It may succeed at
	// most once per notification; subsequent calls return ErrFailoverAlreadySet.
	SetFailoverChannel(ctx context.Context, id uuid.UUID, ch Channel) error

	// SetFailoverStatus advances the failover attempt outcome.
	SetFailoverStatus(ctx context.Context, id uuid.UUID, fs FailoverStatus) error
}

// HistoryStorage handles the append-only delivery history ledger.
type HistoryStorage interface {
	// Append adds a new ledger row. Rows are never updated or deleted.
	Append(ctx context.Context, rec *HistoryRecord) error

	// ListByNotification returns all ledger rows for a notification in
	// chronological order.
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]HistoryRecord, error)

	// LatestByProviderMessageID returns the most recent ledger row whose
	// provider message id matches, or ErrHistoryNotFound.
	LatestByProviderMessageID(ctx context.Context, providerMessageID string) (*HistoryRecord, error)
}

// ResolveTransition folds transition options into the concrete field
// updates applied together with the status change. Storage
// implementations outside this package use it instead of reaching into
// the option internals.
func ResolveTransition(opts ...TransitionOption) (errMsg *string, sentAt *time.Time, clearError bool) {
	var t transition
	for _, opt := range opts {
		opt(&t)
	}
	return t.errMsg, t.sentAt, t.clearEr
}
