package notification

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is one append-only ledger row. Rows are never updated or
// deleted; the provider message id is the correlation key for inbound
// provider webhooks.
type HistoryRecord struct {
	ID                uuid.UUID `json:"id"`
	NotificationID    uuid.UUID `json:"notification_id"`
	Channel           Channel   `json:"channel"`
	Status            Status    `json:"status"`
	Provider          string    `json:"provider,omitempty"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Attempt           int       `json:"attempt"`
	Error             string    `json:"error,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}
