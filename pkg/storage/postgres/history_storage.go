package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// HistoryStorage implements notification.HistoryStorage on pgx. The
// table has no UPDATE or DELETE path; the ledger only ever grows.
type HistoryStorage struct {
	pool *pgxpool.Pool
}

// NewHistoryStorage creates a pgx-backed history storage.
func NewHistoryStorage(pool *pgxpool.Pool) (*HistoryStorage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &HistoryStorage{pool: pool}, nil
}

const historyColumns = `id, notification_id, channel, status, provider,
	provider_message_id, attempt, error, occurred_at`

// Append implements notification.HistoryStorage.
func (s *HistoryStorage) Append(ctx context.Context, rec *notification.HistoryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	const query = `
INSERT INTO notification_history (` + historyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.NotificationID, rec.Channel, rec.Status, rec.Provider,
		rec.ProviderMessageID, rec.Attempt, rec.Error, rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListByNotification implements notification.HistoryStorage.
func (s *HistoryStorage) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]notification.HistoryRecord, error) {
	const query = `
SELECT ` + historyColumns + `
FROM notification_history
WHERE notification_id = $1
ORDER BY occurred_at, attempt, id`

	rows, err := s.pool.Query(ctx, query, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []notification.HistoryRecord
	for rows.Next() {
		var rec notification.HistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.NotificationID, &rec.Channel, &rec.Status, &rec.Provider,
			&rec.ProviderMessageID, &rec.Attempt, &rec.Error, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestByProviderMessageID implements notification.HistoryStorage.
func (s *HistoryStorage) LatestByProviderMessageID(ctx context.Context, providerMessageID string) (*notification.HistoryRecord, error) {
	const query = `
SELECT ` + historyColumns + `
FROM notification_history
WHERE provider_message_id = $1
ORDER BY occurred_at DESC, attempt DESC, id DESC
LIMIT 1`

	var rec notification.HistoryRecord
	err := s.pool.QueryRow(ctx, query, providerMessageID).Scan(
		&rec.ID, &rec.NotificationID, &rec.Channel, &rec.Status, &rec.Provider,
		&rec.ProviderMessageID, &rec.Attempt, &rec.Error, &rec.OccurredAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("latest history by provider message id: %w", err)
	}
	return &rec, nil
}
