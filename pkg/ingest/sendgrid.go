package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// sendgridEvent is one entry of the JSON array SendGrid posts. A single
// request batches events for many messages.
type sendgridEvent struct {
	MessageID string `json:"sg_message_id"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}

// sendgridStatuses maps SendGrid event names to the canonical set.
// Bounce, dropped, and spam report collapse into failure statuses.
// Deferred is transient (the provider keeps retrying on its own) and is
// ignored like every other event name not in the map.
var sendgridStatuses = map[string]notification.Status{
	"processed":  notification.StatusSent,
	"delivered":  notification.StatusDelivered,
	"bounce":     notification.StatusBounced,
	"dropped":    notification.StatusFailed,
	"spamreport": notification.StatusFailed,
	"open":       notification.StatusOpened,
	"click":      notification.StatusClicked,
}

// parseSendgrid translates a SendGrid webhook batch.
func parseSendgrid(payload []byte) ([]NormalizedEvent, error) {
	var batch []sendgridEvent
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	events := make([]NormalizedEvent, 0, len(batch))
	for _, ev := range batch {
		status, ok := sendgridStatuses[ev.Event]
		if !ok || ev.MessageID == "" {
			continue
		}

		occurredAt := time.Now()
		if ev.Timestamp > 0 {
			occurredAt = time.Unix(ev.Timestamp, 0)
		}

		errText := ""
		if status == notification.StatusBounced || status == notification.StatusFailed {
			errText = ev.Reason
			if errText == "" {
				errText = ev.Event
			}
		}

		events = append(events, NormalizedEvent{
			ProviderMessageID: ev.MessageID,
			Status:            status,
			Error:             errText,
			OccurredAt:        occurredAt,
		})
	}
	return events, nil
}
