package preference

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Preference is one user's delivery policy for a (type, channel) pair.
// Preferences are written by user-facing preference management; the
// delivery core only reads them.
type Preference struct {
	UserID      string               `json:"user_id"`
	Type        notification.Type    `json:"type"`
	Channel     notification.Channel `json:"channel"`
	Enabled     bool                 `json:"enabled"`
	Mute        bool                 `json:"mute"`
	SnoozeUntil *time.Time           `json:"snooze_until,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
