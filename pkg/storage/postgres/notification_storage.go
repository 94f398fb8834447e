package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// NotificationStorage implements notification.Storage on pgx.
type NotificationStorage struct {
	pool *pgxpool.Pool
}

// NewNotificationStorage creates a pgx-backed notification storage.
func NewNotificationStorage(pool *pgxpool.Pool) (*NotificationStorage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &NotificationStorage{pool: pool}, nil
}

const notificationColumns = `id, user_id, type, channel, priority, status,
	template_key, locale, recipient, subject, body, variables,
	retry_count, error, failover_channel, failover_status,
	last_retry_at, next_retry_at, sent_at, created_at, updated_at`

// Create implements notification.Storage.
func (s *NotificationStorage) Create(ctx context.Context, n *notification.Notification) error {
	vars, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	const query = `
INSERT INTO notifications (` + notificationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err = s.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Channel, n.Priority, n.Status,
		n.TemplateKey, n.Locale, n.Recipient, n.Subject, n.Body, vars,
		n.RetryCount, n.Error, n.FailoverChannel, n.FailoverStatus,
		n.LastRetryAt, n.NextRetryAt, n.SentAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("create notification %s: %w", n.ID, err)
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Get implements notification.Storage.
func (s *NotificationStorage) Get(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	const query = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE id = $1`

	var (
		n    notification.Notification
		vars []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Priority, &n.Status,
		&n.TemplateKey, &n.Locale, &n.Recipient, &n.Subject, &n.Body, &vars,
		&n.RetryCount, &n.Error, &n.FailoverChannel, &n.FailoverStatus,
		&n.LastRetryAt, &n.NextRetryAt, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}

	if len(vars) > 0 {
		if err := json.Unmarshal(vars, &n.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
	}
	return &n, nil
}

// Transition implements notification.Storage. The state machine guard is
// pushed into the WHERE clause so that concurrent writers race on a
// single conditional update instead of a read-modify-write cycle.
func (s *NotificationStorage) Transition(ctx context.Context, id uuid.UUID, to notification.Status, opts ...notification.TransitionOption) error {
	errMsg, sentAt, clearError := notification.ResolveTransition(opts...)

	sources := notification.TransitionSources(to)
	allowed := make([]string, len(sources))
	for i, src := range sources {
		allowed[i] = string(src)
	}

	const query = `
UPDATE notifications
SET status = $2,
    error = CASE WHEN $4 THEN NULL WHEN $3::text IS NOT NULL THEN $3 ELSE error END,
    sent_at = COALESCE($5, sent_at),
    updated_at = now()
WHERE id = $1 AND status = ANY($6)`

	tag, err := s.pool.Exec(ctx, query, id, to, errMsg, clearError, sentAt, allowed)
	if err != nil {
		return fmt.Errorf("transition notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrStale(ctx, id, notification.ErrStaleTransition)
	}
	return nil
}

// RecordRetry implements notification.Storage.
func (s *NotificationStorage) RecordRetry(ctx context.Context, id uuid.UUID, retryCount int, errMsg string, nextRetryAt time.Time) error {
	const query = `
UPDATE notifications
SET retry_count = $2,
    error = $3,
    last_retry_at = now(),
    next_retry_at = $4,
    updated_at = now()
WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, retryCount, errMsg, nextRetryAt)
	if err != nil {
		return fmt.Errorf("record retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// SetFailoverChannel implements notification.Storage. The IS NULL guard
// makes the assignment first-writer-wins across workers.
func (s *NotificationStorage) SetFailoverChannel(ctx context.Context, id uuid.UUID, ch notification.Channel) error {
	const query = `
UPDATE notifications
SET failover_channel = $2, updated_at = now()
WHERE id = $1 AND failover_channel IS NULL`

	tag, err := s.pool.Exec(ctx, query, id, ch)
	if err != nil {
		return fmt.Errorf("set failover channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrStale(ctx, id, notification.ErrFailoverAlreadySet)
	}
	return nil
}

// SetFailoverStatus implements notification.Storage.
func (s *NotificationStorage) SetFailoverStatus(ctx context.Context, id uuid.UUID, fs notification.FailoverStatus) error {
	const query = `
UPDATE notifications
SET failover_status = $2, updated_at = now()
WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, fs)
	if err != nil {
		return fmt.Errorf("set failover status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// missOrStale distinguishes a guard rejection from a missing record
// after a conditional update touched zero rows.
func (s *NotificationStorage) missOrStale(ctx context.Context, id uuid.UUID, guardErr error) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check notification exists: %w", err)
	}
	if !exists {
		return notification.ErrNotFound
	}
	return guardErr
}
