package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents an independent delivery medium with its own queue
// and worker pool.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid checks if the channel is one of the supported delivery channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// FailoverTarget returns the channel a permanently failed delivery is
// re-routed to, or false when the channel has no failover target.
// Email is the failover sink; its own exhaustion is terminal.
func (c Channel) FailoverTarget() (Channel, bool) {
	switch c {
	case ChannelSMS, ChannelPush:
		return ChannelEmail, true
	}
	return "", false
}

// Type represents the notification type.
type Type string

const (
	TypeTransactional Type = "transactional"
	TypeReminder      Type = "reminder"
	TypePromotional   Type = "promotional"
	TypeSystem        Type = "system"
)

// Valid checks if the type is one of the supported notification types.
func (t Type) Valid() bool {
	switch t {
	case TypeTransactional, TypeReminder, TypePromotional, TypeSystem:
		return true
	}
	return false
}

// Priority controls dequeue order within a channel's queue (1-10,
// higher dequeues first).
type Priority int

const (
	PriorityMin     Priority = 1
	PriorityDefault Priority = 5
	PriorityMax     Priority = 10
)

// Valid checks if the priority is within the valid range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// FailoverStatus tracks the outcome of a failover attempt.
type FailoverStatus string

const (
	FailoverAttempting FailoverStatus = "attempting"
	FailoverSuccess    FailoverStatus = "success"
	FailoverFailed     FailoverStatus = "failed"
)

// Notification is the addressable, mutable projection of the current
// delivery state for one logical message intent.
type Notification struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	Type            Type            `json:"type"`
	Channel         Channel         `json:"channel"`
	Priority        Priority        `json:"priority"`
	Status          Status          `json:"status"`
	TemplateKey     string          `json:"template_key,omitempty"`
	Locale          string          `json:"locale,omitempty"`
	Recipient       string          `json:"recipient"`
	Subject         string          `json:"subject,omitempty"`
	Body            string          `json:"body,omitempty"`
	Variables       map[string]any  `json:"variables,omitempty"`
	RetryCount      int             `json:"retry_count"`
	Error           *string         `json:"error,omitempty"`
	FailoverChannel *Channel        `json:"failover_channel,omitempty"`
	FailoverStatus  *FailoverStatus `json:"failover_status,omitempty"`
	LastRetryAt     *time.Time      `json:"last_retry_at,omitempty"`
	NextRetryAt     *time.Time      `json:"next_retry_at,omitempty"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
