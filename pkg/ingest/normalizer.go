package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Supported provider names.
const (
	ProviderPostmark = "postmark"
	ProviderSendgrid = "sendgrid"
	ProviderTwilio   = "twilio"
)

// Normalizer translates provider-specific webhook payloads into
// canonical statuses, appends them to the history ledger, and advances
// the notification record through the guarded state machine. It is the
// second concurrent writer next to the delivery workers; the transition
// guard in the record storage is what keeps the two consistent.
type Normalizer struct {
	notifications notification.Storage
	history       notification.HistoryStorage
	parsers       map[string]parseFunc
	logger        *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithNormalizerLogger overrides the default logger.
func WithNormalizerLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer creates a webhook normalizer supporting Postmark,
// SendGrid, and Twilio payloads.
func NewNormalizer(notifications notification.Storage, history notification.HistoryStorage, opts ...NormalizerOption) (*Normalizer, error) {
	if notifications == nil || history == nil {
		return nil, ErrStorageNil
	}

	n := &Normalizer{
		notifications: notifications,
		history:       history,
		parsers: map[string]parseFunc{
			ProviderPostmark: parsePostmark,
			ProviderSendgrid: parseSendgrid,
			ProviderTwilio:   parseTwilio,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Supported reports whether the provider name is in the supported set.
func (n *Normalizer) Supported(providerName string) bool {
	_, ok := n.parsers[providerName]
	return ok
}

// Ingest parses the raw payload and applies every normalized event.
// It returns how many events were applied out of how many the payload
// carried. Orphan events, whose provider message id matches no history
// row, are skipped and logged: a webhook for a message another system
// sent is noise, not an error.
func (n *Normalizer) Ingest(ctx context.Context, providerName string, payload []byte) (processed, total int, err error) {
	parse, ok := n.parsers[providerName]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerName)
	}

	events, err := parse(payload)
	if err != nil {
		return 0, 0, err
	}

	total = len(events)
	for _, ev := range events {
		applied, err := n.apply(ctx, providerName, ev)
		if err != nil {
			return processed, total, err
		}
		if applied {
			processed++
		}
	}
	return processed, total, nil
}

// apply correlates one normalized event with its notification and
// records it.
func (n *Normalizer) apply(ctx context.Context, providerName string, ev NormalizedEvent) (bool, error) {
	prev, err := n.history.LatestByProviderMessageID(ctx, ev.ProviderMessageID)
	if err != nil {
		if errors.Is(err, notification.ErrHistoryNotFound) {
			n.logger.WarnContext(ctx, "orphan webhook event skipped",
				slog.String("provider", providerName),
				slog.String("provider_message_id", ev.ProviderMessageID),
				slog.String("status", string(ev.Status)))
			return false, nil
		}
		return false, fmt.Errorf("failed to look up history by provider message id: %w", err)
	}

	if err := n.history.Append(ctx, &notification.HistoryRecord{
		ID:                uuid.New(),
		NotificationID:    prev.NotificationID,
		Channel:           prev.Channel,
		Status:            ev.Status,
		Provider:          providerName,
		ProviderMessageID: ev.ProviderMessageID,
		Attempt:           prev.Attempt + 1,
		Error:             ev.Error,
		OccurredAt:        ev.OccurredAt,
	}); err != nil {
		return false, fmt.Errorf("failed to append history record: %w", err)
	}

	var opts []notification.TransitionOption
	if ev.Error != "" && (ev.Status == notification.StatusFailed || ev.Status == notification.StatusBounced) {
		opts = append(opts, notification.WithError(ev.Error))
	}

	// Out-of-order callbacks lose against the guard. The ledger keeps the
	// event either way; only the record's current status is protected.
	if err := n.notifications.Transition(ctx, prev.NotificationID, ev.Status, opts...); err != nil {
		if errors.Is(err, notification.ErrStaleTransition) {
			n.logger.DebugContext(ctx, "webhook status not applied to record",
				slog.String("notification_id", prev.NotificationID.String()),
				slog.String("status", string(ev.Status)))
			return true, nil
		}
		return false, fmt.Errorf("failed to advance notification record: %w", err)
	}

	n.logger.InfoContext(ctx, "webhook status applied",
		slog.String("notification_id", prev.NotificationID.String()),
		slog.String("provider", providerName),
		slog.String("provider_message_id", ev.ProviderMessageID),
		slog.String("status", string(ev.Status)))

	return true, nil
}
