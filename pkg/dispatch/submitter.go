package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// SubmitInput is a request to deliver one notification.
type SubmitInput struct {
	UserID      string
	Type        notification.Type
	Channel     notification.Channel
	Priority    notification.Priority // zero means default priority
	Recipient   string
	TemplateKey string
	Locale      string
	Subject     string
	Body        string
	Variables   map[string]any
}

// Validate checks the required fields and enum values.
func (in SubmitInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if in.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidInput, in.Type)
	}
	if !in.Channel.Valid() {
		return fmt.Errorf("%w: unsupported channel %q", ErrInvalidInput, in.Channel)
	}
	if in.Priority != 0 && !in.Priority.Valid() {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidInput, notification.PriorityMin, notification.PriorityMax)
	}
	if in.TemplateKey == "" && in.Body == "" {
		return fmt.Errorf("%w: either template key or body is required", ErrInvalidInput)
	}
	return nil
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	NotificationID uuid.UUID
	JobID          uuid.UUID
	Blocked        bool
}

// Submitter accepts delivery requests, applies the submit-time
// preference gate, and enqueues the delivery job on the channel queue.
// Preferences are checked again at delivery time, so a preference
// change between submit and delivery still takes effect.
type Submitter struct {
	notifications notification.Storage
	history       notification.HistoryStorage
	prefs         *preference.Resolver
	queues        *QueueManager
	logger        *slog.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithSubmitterLogger overrides the default logger.
func WithSubmitterLogger(logger *slog.Logger) SubmitterOption {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSubmitter creates a submission service.
func NewSubmitter(
	notifications notification.Storage,
	history notification.HistoryStorage,
	prefs *preference.Resolver,
	queues *QueueManager,
	opts ...SubmitterOption,
) (*Submitter, error) {
	if notifications == nil || history == nil {
		return nil, ErrStorageNil
	}
	if prefs == nil {
		return nil, ErrResolverNil
	}
	if queues == nil {
		return nil, ErrQueueManagerNil
	}

	s := &Submitter{
		notifications: notifications,
		history:       history,
		prefs:         prefs,
		queues:        queues,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit creates the notification record and enqueues a delivery job.
//
// When the user's preferences deny the (type, channel) pair the record
// is created already failed with one PREFERENCE_BLOCKED history row and
// no job; the result reports Blocked and the error is nil, because the
// submission itself was accepted and the denial is auditable state.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == 0 {
		priority = notification.PriorityDefault
	}

	now := time.Now()
	n := &notification.Notification{
		ID:          uuid.New(),
		UserID:      in.UserID,
		Type:        in.Type,
		Channel:     in.Channel,
		Priority:    priority,
		Status:      notification.StatusQueued,
		TemplateKey: in.TemplateKey,
		Locale:      in.Locale,
		Recipient:   in.Recipient,
		Subject:     in.Subject,
		Body:        in.Body,
		Variables:   in.Variables,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	allowed, err := s.prefs.Resolve(ctx, in.UserID, in.Type, in.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preference: %w", err)
	}
	if !allowed {
		if err := s.markBlocked(ctx, n); err != nil {
			return nil, err
		}

		s.logger.InfoContext(ctx, "submission blocked by preference",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", in.UserID),
			slog.String("type", string(in.Type)),
			slog.String("channel", string(in.Channel)))

		return &SubmitResult{NotificationID: n.ID, Blocked: true}, nil
	}

	enq, err := s.queues.Enqueuer(in.Channel)
	if err != nil {
		return nil, err
	}

	payload := DeliveryPayload{
		UserID:      in.UserID,
		Type:        in.Type,
		Recipient:   in.Recipient,
		TemplateKey: in.TemplateKey,
		Locale:      in.Locale,
		Subject:     in.Subject,
		Body:        in.Body,
		Variables:   in.Variables,
	}
	job, err := enq.Enqueue(ctx, n.ID, payload, queue.WithPriority(priority))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue delivery job: %w", err)
	}

	s.logger.InfoContext(ctx, "notification submitted",
		slog.String("notification_id", n.ID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("channel", string(in.Channel)),
		slog.Int("priority", int(priority)))

	return &SubmitResult{NotificationID: n.ID, JobID: job.ID}, nil
}

// markBlocked records the policy denial on the notification and in the
// history ledger.
func (s *Submitter) markBlocked(ctx context.Context, n *notification.Notification) error {
	if err := s.notifications.Transition(ctx, n.ID, notification.StatusFailed,
		notification.WithError(ReasonPreferenceBlocked)); err != nil {
		return fmt.Errorf("failed to mark notification blocked: %w", err)
	}

	rec := &notification.HistoryRecord{
		ID:             uuid.New(),
		NotificationID: n.ID,
		Channel:        n.Channel,
		Status:         notification.StatusFailed,
		Error:          ReasonPreferenceBlocked,
		OccurredAt:     time.Now(),
	}
	if err := s.history.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}
