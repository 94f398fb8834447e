package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// postmarkEvent is the shape Postmark posts for delivery, bounce, spam,
// open, and click webhooks. One request carries one event.
type postmarkEvent struct {
	RecordType  string     `json:"RecordType"`
	MessageID   string     `json:"MessageID"`
	DeliveredAt *time.Time `json:"DeliveredAt,omitempty"`
	BouncedAt   *time.Time `json:"BouncedAt,omitempty"`
	ReceivedAt  *time.Time `json:"ReceivedAt,omitempty"`
	Description string     `json:"Description,omitempty"`
	Details     string     `json:"Details,omitempty"`
}

// postmarkStatuses maps Postmark record types to the canonical set.
var postmarkStatuses = map[string]notification.Status{
	"Delivery":      notification.StatusDelivered,
	"Bounce":        notification.StatusBounced,
	"SpamComplaint": notification.StatusFailed,
	"Open":          notification.StatusOpened,
	"Click":         notification.StatusClicked,
}

// parsePostmark translates a single Postmark webhook event.
func parsePostmark(payload []byte) ([]NormalizedEvent, error) {
	var ev postmarkEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if ev.MessageID == "" {
		return nil, fmt.Errorf("%w: missing MessageID", ErrMalformedPayload)
	}

	status, ok := postmarkStatuses[ev.RecordType]
	if !ok {
		// Postmark record types outside our vocabulary, such as
		// SubscriptionChange, carry no delivery status.
		return nil, nil
	}

	occurredAt := time.Now()
	switch {
	case ev.DeliveredAt != nil:
		occurredAt = *ev.DeliveredAt
	case ev.BouncedAt != nil:
		occurredAt = *ev.BouncedAt
	case ev.ReceivedAt != nil:
		occurredAt = *ev.ReceivedAt
	}

	errText := ev.Description
	if errText == "" {
		errText = ev.Details
	}
	if status != notification.StatusBounced && status != notification.StatusFailed {
		errText = ""
	}

	return []NormalizedEvent{{
		ProviderMessageID: ev.MessageID,
		Status:            status,
		Error:             errText,
		OccurredAt:        occurredAt,
	}}, nil
}
