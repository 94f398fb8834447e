package ingest

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// NormalizedEvent is one provider callback translated into the
// canonical status vocabulary. The provider message id is the only
// correlation key back to a notification.
type NormalizedEvent struct {
	ProviderMessageID string
	Status            notification.Status
	Error             string
	OccurredAt        time.Time
}

// parseFunc translates one provider's raw payload into normalized
// events. Events the provider vocabulary does not map to a canonical
// status are dropped by the parser.
type parseFunc func(payload []byte) ([]NormalizedEvent, error)
