package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// FailoverCoordinator re-routes a notification to its backup channel
// after the primary channel exhausted its delivery attempts. The
// failover map is sms to email and push to email; email itself has no
// backup, so email exhaustion is terminal.
//
// Failover runs at most once per notification. The guard is twofold:
// the triggering job's IsFailover flag stops the cycle at the caller,
// and SetFailoverChannel succeeds at most once per record, so racing
// workers cannot both enqueue a backup job.
type FailoverCoordinator struct {
	notifications notification.Storage
	queues        *QueueManager
	logger        *slog.Logger
}

// FailoverOption configures a FailoverCoordinator.
type FailoverOption func(*FailoverCoordinator)

// WithFailoverLogger overrides the default logger.
func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(c *FailoverCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewFailoverCoordinator creates a failover coordinator.
func NewFailoverCoordinator(notifications notification.Storage, queues *QueueManager, opts ...FailoverOption) (*FailoverCoordinator, error) {
	if notifications == nil {
		return nil, ErrStorageNil
	}
	if queues == nil {
		return nil, ErrQueueManagerNil
	}

	c := &FailoverCoordinator{
		notifications: notifications,
		queues:        queues,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Attempt enqueues a backup-channel job carrying the original payload.
// It reports true when the backup job was enqueued. The notification's
// failoverStatus records the enqueue outcome: success means the backup
// job is queued, not that it was delivered.
func (c *FailoverCoordinator) Attempt(ctx context.Context, notificationID uuid.UUID, primary notification.Channel, priority notification.Priority, payload json.RawMessage) (bool, error) {
	target, ok := primary.FailoverTarget()
	if !ok {
		return false, nil
	}

	if err := c.notifications.SetFailoverChannel(ctx, notificationID, target); err != nil {
		// A concurrent worker already claimed the failover slot.
		if errors.Is(err, notification.ErrFailoverAlreadySet) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set failover channel: %w", err)
	}

	if err := c.notifications.SetFailoverStatus(ctx, notificationID, notification.FailoverAttempting); err != nil {
		return false, fmt.Errorf("failed to mark failover attempting: %w", err)
	}

	enq, err := c.queues.Enqueuer(target)
	if err != nil {
		return false, err
	}

	job, err := enq.Enqueue(ctx, notificationID, payload,
		queue.WithPriority(priority),
		queue.AsFailover(),
	)
	if err != nil {
		if ferr := c.notifications.SetFailoverStatus(ctx, notificationID, notification.FailoverFailed); ferr != nil {
			c.logger.ErrorContext(ctx, "failed to mark failover failed",
				slog.String("notification_id", notificationID.String()),
				slog.String("error", ferr.Error()))
		}
		return false, fmt.Errorf("failed to enqueue failover job: %w", err)
	}

	if err := c.notifications.SetFailoverStatus(ctx, notificationID, notification.FailoverSuccess); err != nil {
		return false, fmt.Errorf("failed to mark failover success: %w", err)
	}

	c.logger.InfoContext(ctx, "failover job enqueued",
		slog.String("notification_id", notificationID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("from_channel", string(primary)),
		slog.String("to_channel", string(target)))

	return true, nil
}
