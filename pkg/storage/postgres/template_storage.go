package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// TemplateStorage implements template.Storage on pgx.
type TemplateStorage struct {
	pool *pgxpool.Pool
}

// NewTemplateStorage creates a pgx-backed template storage.
func NewTemplateStorage(pool *pgxpool.Pool) (*TemplateStorage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &TemplateStorage{pool: pool}, nil
}

// Lookup implements template.Storage.
func (s *TemplateStorage) Lookup(ctx context.Context, key string, ch notification.Channel, locale string) (*template.Template, error) {
	const query = `
SELECT key, channel, locale, subject, body, updated_at
FROM templates
WHERE key = $1 AND channel = $2 AND locale = $3`

	var t template.Template
	err := s.pool.QueryRow(ctx, query, key, ch, locale).Scan(
		&t.Key, &t.Channel, &t.Locale, &t.Subject, &t.Body, &t.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, template.ErrNotFound
		}
		return nil, fmt.Errorf("lookup template: %w", err)
	}
	return &t, nil
}

// Set upserts the active template for a (key, channel, locale) triple.
func (s *TemplateStorage) Set(ctx context.Context, t template.Template) error {
	const query = `
INSERT INTO templates (key, channel, locale, subject, body, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key, channel, locale) DO UPDATE
SET subject = EXCLUDED.subject,
    body = EXCLUDED.body,
    updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		t.Key, t.Channel, t.Locale, t.Subject, t.Body, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set template: %w", err)
	}
	return nil
}
