package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// JobStatus represents the status of a delivery job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusDelayed   JobStatus = "delayed"
)

// DefaultMaxAttempts is the default number of delivery attempts per job.
const DefaultMaxAttempts = 3

// Job is one queued delivery attempt for a notification. Each channel
// has its own queue; the Queue field holds the channel name. A failover
// job is created anew on the email queue with IsFailover set, which
// exempts it from triggering further failover.
type Job struct {
	ID             uuid.UUID             `json:"id"`
	NotificationID uuid.UUID             `json:"notification_id"`
	Queue          string                `json:"queue"`
	Priority       notification.Priority `json:"priority"`
	Status         JobStatus             `json:"status"`
	Payload        json.RawMessage       `json:"payload,omitempty"`
	Attempts       int                   `json:"attempts"`
	MaxAttempts    int                   `json:"max_attempts"`
	IsFailover     bool                  `json:"is_failover"`
	Error          *string               `json:"error,omitempty"`
	ScheduledAt    time.Time             `json:"scheduled_at"`
	LockedUntil    *time.Time            `json:"locked_until,omitempty"`
	LockedBy       *uuid.UUID            `json:"locked_by,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ProcessedAt    *time.Time            `json:"processed_at,omitempty"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	FailedAt       *time.Time            `json:"failed_at,omitempty"`
}

// LastAttempt reports whether the attempt accounted for in Attempts was
// the job's final one.
func (j *Job) LastAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}

// Stats holds per-queue aggregate job counts for operational inspection.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
	Total     int `json:"total"`
}

// Filter narrows job listings.
type Filter struct {
	Queue  string
	Status JobStatus
	Limit  int
	Offset int
}
