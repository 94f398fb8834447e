package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

// PreferenceStorage implements preference.Storage on pgx.
type PreferenceStorage struct {
	pool *pgxpool.Pool
}

// NewPreferenceStorage creates a pgx-backed preference storage.
func NewPreferenceStorage(pool *pgxpool.Pool) (*PreferenceStorage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &PreferenceStorage{pool: pool}, nil
}

// Get implements preference.Storage.
func (s *PreferenceStorage) Get(ctx context.Context, userID string, nt notification.Type, ch notification.Channel) (*preference.Preference, error) {
	const query = `
SELECT user_id, type, channel, enabled, mute, snooze_until, updated_at
FROM preferences
WHERE user_id = $1 AND type = $2 AND channel = $3`

	var p preference.Preference
	err := s.pool.QueryRow(ctx, query, userID, nt, ch).Scan(
		&p.UserID, &p.Type, &p.Channel, &p.Enabled, &p.Mute, &p.SnoozeUntil, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, preference.ErrNotFound
		}
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return &p, nil
}

// Set upserts a preference row keyed by the (user, type, channel) triple.
func (s *PreferenceStorage) Set(ctx context.Context, p preference.Preference) error {
	const query = `
INSERT INTO preferences (user_id, type, channel, enabled, mute, snooze_until, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, type, channel) DO UPDATE
SET enabled = EXCLUDED.enabled,
    mute = EXCLUDED.mute,
    snooze_until = EXCLUDED.snooze_until,
    updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		p.UserID, p.Type, p.Channel, p.Enabled, p.Mute, p.SnoozeUntil, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
