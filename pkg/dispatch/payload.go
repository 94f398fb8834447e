package dispatch

import (
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// DeliveryPayload is the immutable content snapshot carried by a queued
// job. Capturing it at submit time keeps every retry, and the failover
// job cloned from it, delivering exactly the content the caller
// submitted regardless of later record mutations.
type DeliveryPayload struct {
	UserID      string            `json:"user_id"`
	Type        notification.Type `json:"type"`
	Recipient   string            `json:"recipient"`
	TemplateKey string            `json:"template_key,omitempty"`
	Locale      string            `json:"locale,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	Body        string            `json:"body,omitempty"`
	Variables   map[string]any    `json:"variables,omitempty"`
}
