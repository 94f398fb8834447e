package provider

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Receipt identifies an accepted send: which provider carried it and
// the message id that provider will reference in later status webhooks.
type Receipt struct {
	Provider  string
	MessageID string
}

// Gateway wraps one external channel's send operation behind a narrow
// send-and-report contract. A returned error is treated as a transient
// provider failure and consumes a delivery attempt.
type Gateway interface {
	// Name returns the provider name recorded in the history ledger.
	Name() string

	// Send transmits the rendered content to the recipient.
	Send(ctx context.Context, recipient, subject, body string) (Receipt, error)
}

// Registry maps channels to their configured gateways.
type Registry map[notification.Channel]Gateway

// Gateway returns the gateway for a channel.
func (r Registry) Gateway(ch notification.Channel) (Gateway, bool) {
	gw, ok := r[ch]
	return gw, ok
}
