package template

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// MemoryStorage implements Storage for testing and local development.
type MemoryStorage struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewMemoryStorage creates a new in-memory template storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		templates: make(map[string]*Template),
	}
}

func tplKey(key string, ch notification.Channel, locale string) string {
	return fmt.Sprintf("%s|%s|%s", key, ch, locale)
}

// Lookup implements Storage.
func (ms *MemoryStorage) Lookup(ctx context.Context, key string, ch notification.Channel, locale string) (*Template, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	tpl, ok := ms.templates[tplKey(key, ch, locale)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *tpl
	return &cp, nil
}

// Set stores or replaces the active template for a triple.
func (ms *MemoryStorage) Set(ctx context.Context, tpl Template) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	tpl.UpdatedAt = time.Now()
	ms.templates[tplKey(tpl.Key, tpl.Channel, tpl.Locale)] = &tpl
	return nil
}
