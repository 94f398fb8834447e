package template

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Template is one active template row matching a (key, channel, locale)
// triple. Template authoring and versioning live outside the delivery
// core; only the active row is visible here.
type Template struct {
	Key       string               `json:"key"`
	Channel   notification.Channel `json:"channel"`
	Locale    string               `json:"locale"`
	Subject   string               `json:"subject,omitempty"`
	Body      string               `json:"body"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Storage provides read access to active templates.
type Storage interface {
	// Lookup returns the active template for the triple, or ErrNotFound.
	Lookup(ctx context.Context, key string, ch notification.Channel, locale string) (*Template, error)
}
