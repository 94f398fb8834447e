package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Processor executes one claimed delivery job: it re-resolves the user's
// preference, renders content, calls the channel's provider gateway, and
// records the outcome in the notification record and the history ledger.
// It implements queue.Processor, so one Processor instance serves the
// worker pools of all channels.
//
// The effective channel is the job's queue, not the notification's
// original channel, which is what routes a failover job through the
// email gateway.
type Processor struct {
	notifications notification.Storage
	history       notification.HistoryStorage
	prefs         *preference.Resolver
	renderer      *template.Renderer
	gateways      provider.Registry
	failover      *FailoverCoordinator
	backoff       queue.BackoffStrategy
	logger        *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBackoffStrategy overrides the retry schedule recorded on the
// notification. Configure the channel workers with the same strategy so
// nextRetryAt matches when the queue actually re-runs the job.
func WithBackoffStrategy(b queue.BackoffStrategy) ProcessorOption {
	return func(p *Processor) {
		if b != nil {
			p.backoff = b
		}
	}
}

// WithProcessorLogger overrides the default logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a delivery processor.
func NewProcessor(
	notifications notification.Storage,
	history notification.HistoryStorage,
	prefs *preference.Resolver,
	renderer *template.Renderer,
	gateways provider.Registry,
	failover *FailoverCoordinator,
	opts ...ProcessorOption,
) (*Processor, error) {
	if notifications == nil || history == nil {
		return nil, ErrStorageNil
	}
	if prefs == nil {
		return nil, ErrResolverNil
	}
	if renderer == nil {
		return nil, ErrRendererNil
	}

	p := &Processor{
		notifications: notifications,
		history:       history,
		prefs:         prefs,
		renderer:      renderer,
		gateways:      gateways,
		failover:      failover,
		backoff:       queue.DefaultBackoffStrategy(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process implements queue.Processor.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	var payload DeliveryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.NonRetryable(fmt.Errorf("malformed job payload: %w", err))
	}

	ch := notification.Channel(job.Queue)
	if !ch.Valid() {
		return queue.NonRetryable(fmt.Errorf("%w: %s", ErrUnknownChannel, job.Queue))
	}

	// A failover job's record is already terminally failed; the guard
	// leaves it untouched and the attempt proceeds on the ledger alone.
	if err := p.notifications.Transition(ctx, job.NotificationID, notification.StatusSending); err != nil &&
		!errors.Is(err, notification.ErrStaleTransition) {
		return fmt.Errorf("failed to mark notification sending: %w", err)
	}

	allowed, err := p.prefs.Resolve(ctx, payload.UserID, payload.Type, ch)
	if err != nil {
		return fmt.Errorf("failed to resolve preference: %w", err)
	}
	if !allowed {
		return p.recordBlocked(ctx, job, ch)
	}

	content, err := p.renderer.Render(ctx, payload.TemplateKey, ch, payload.Locale,
		template.Content{Subject: payload.Subject, Body: payload.Body}, payload.Variables)
	if err != nil {
		return fmt.Errorf("failed to render content: %w", err)
	}

	gw, ok := p.gateways.Gateway(ch)
	if !ok {
		// A missing gateway consumes attempts like any provider failure,
		// so a misconfigured sms/push channel still fails over to email.
		return p.recordFailure(ctx, job, ch, fmt.Errorf("%w: %s", provider.ErrGatewayNotConfigured, ch))
	}

	receipt, err := gw.Send(ctx, payload.Recipient, content.Subject, content.Body)
	if err != nil {
		return p.recordFailure(ctx, job, ch, err)
	}

	return p.recordSuccess(ctx, job, ch, receipt)
}

// recordBlocked handles a delivery-time preference denial. It is a
// policy decision, not a transient error: no provider call, no retry,
// no failover.
func (p *Processor) recordBlocked(ctx context.Context, job *queue.Job, ch notification.Channel) error {
	if err := p.history.Append(ctx, &notification.HistoryRecord{
		ID:             uuid.New(),
		NotificationID: job.NotificationID,
		Channel:        ch,
		Status:         notification.StatusFailed,
		Attempt:        job.Attempts,
		Error:          ReasonPreferenceBlocked,
		OccurredAt:     time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	if err := p.notifications.Transition(ctx, job.NotificationID, notification.StatusFailed,
		notification.WithError(ReasonPreferenceBlocked)); err != nil &&
		!errors.Is(err, notification.ErrStaleTransition) {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	p.logger.InfoContext(ctx, "delivery blocked by preference",
		slog.String("notification_id", job.NotificationID.String()),
		slog.String("channel", string(ch)))

	return queue.NonRetryable(ErrPreferenceBlocked)
}

// recordSuccess appends the sent ledger row and advances the record.
func (p *Processor) recordSuccess(ctx context.Context, job *queue.Job, ch notification.Channel, receipt provider.Receipt) error {
	now := time.Now()

	if err := p.history.Append(ctx, &notification.HistoryRecord{
		ID:                uuid.New(),
		NotificationID:    job.NotificationID,
		Channel:           ch,
		Status:            notification.StatusSent,
		Provider:          receipt.Provider,
		ProviderMessageID: receipt.MessageID,
		Attempt:           job.Attempts,
		OccurredAt:        now,
	}); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	// An original record moves to sent; the terminally failed record
	// behind a failover job stays failed and only the ledger advances.
	if err := p.notifications.Transition(ctx, job.NotificationID, notification.StatusSent,
		notification.WithSentAt(now), notification.WithClearError()); err != nil &&
		!errors.Is(err, notification.ErrStaleTransition) {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	p.logger.InfoContext(ctx, "notification sent",
		slog.String("notification_id", job.NotificationID.String()),
		slog.String("channel", string(ch)),
		slog.String("provider", receipt.Provider),
		slog.String("provider_message_id", receipt.MessageID),
		slog.Int("attempt", job.Attempts))

	return nil
}

// recordFailure appends the failed ledger row, updates retry
// bookkeeping, and on the final attempt marks the record failed and
// hands non-email channels to the failover coordinator. The send error
// is returned so the queue schedules the retry or terminal failure.
func (p *Processor) recordFailure(ctx context.Context, job *queue.Job, ch notification.Channel, sendErr error) error {
	if err := p.history.Append(ctx, &notification.HistoryRecord{
		ID:             uuid.New(),
		NotificationID: job.NotificationID,
		Channel:        ch,
		Status:         notification.StatusFailed,
		Attempt:        job.Attempts,
		Error:          sendErr.Error(),
		OccurredAt:     time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	if !job.LastAttempt() {
		nextRetryAt := time.Now().Add(p.backoff.NextInterval(job.Attempts))
		if err := p.notifications.RecordRetry(ctx, job.NotificationID, job.Attempts, sendErr.Error(), nextRetryAt); err != nil {
			return fmt.Errorf("failed to record retry: %w", err)
		}
		return sendErr
	}

	if err := p.notifications.Transition(ctx, job.NotificationID, notification.StatusFailed,
		notification.WithError(sendErr.Error())); err != nil &&
		!errors.Is(err, notification.ErrStaleTransition) {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	if !job.IsFailover && p.failover != nil {
		if _, err := p.failover.Attempt(ctx, job.NotificationID, ch, job.Priority, job.Payload); err != nil {
			p.logger.ErrorContext(ctx, "failover attempt failed",
				slog.String("notification_id", job.NotificationID.String()),
				slog.String("channel", string(ch)),
				slog.String("error", err.Error()))
		}
	}

	return sendErr
}
