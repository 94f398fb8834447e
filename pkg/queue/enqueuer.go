package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// EnqueuerRepository defines the interface for job creation.
type EnqueuerRepository interface {
	CreateJob(ctx context.Context, job *Job) error
}

// Enqueuer adds delivery jobs to a channel queue.
type Enqueuer struct {
	repo  EnqueuerRepository
	queue string
}

// NewEnqueuer creates an Enqueuer bound to one channel queue.
func NewEnqueuer(repo EnqueuerRepository, queue string) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	return &Enqueuer{repo: repo, queue: queue}, nil
}

// Queue returns the channel queue name this enqueuer writes to.
func (e *Enqueuer) Queue() string {
	return e.queue
}

// Enqueue creates a new pending job for the notification and returns it.
func (e *Enqueuer) Enqueue(ctx context.Context, notificationID uuid.UUID, payload any, opts ...EnqueueOption) (*Job, error) {
	options := &enqueueOptions{
		priority:    notification.PriorityDefault,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	if !options.priority.Valid() {
		return nil, ErrInvalidPriority
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	now := time.Now()
	scheduledAt := now
	if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	job := &Job{
		ID:             uuid.New(),
		NotificationID: notificationID,
		Queue:          e.queue,
		Priority:       options.priority,
		Status:         JobStatusPending,
		Payload:        payloadBytes,
		Attempts:       0,
		MaxAttempts:    options.maxAttempts,
		IsFailover:     options.isFailover,
		ScheduledAt:    scheduledAt,
		CreatedAt:      now,
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job in queue %q: %w", e.queue, err)
	}

	return job, nil
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority    notification.Priority
	maxAttempts int
	delay       time.Duration
	isFailover  bool
}

// WithPriority sets the job priority (1-10, higher dequeues first).
func WithPriority(priority notification.Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithMaxAttempts overrides the default attempt limit.
func WithMaxAttempts(maxAttempts int) EnqueueOption {
	return func(o *enqueueOptions) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
	}
}

// WithDelay defers the first attempt.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// AsFailover marks the job as a failover attempt, exempting it from
// triggering another failover when it exhausts its own attempts.
func AsFailover() EnqueueOption {
	return func(o *enqueueOptions) {
		o.isFailover = true
	}
}
