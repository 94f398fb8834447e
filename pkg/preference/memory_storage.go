package preference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// MemoryStorage implements Storage for testing and local development.
type MemoryStorage struct {
	mu    sync.RWMutex
	prefs map[string]*Preference
}

// NewMemoryStorage creates a new in-memory preference storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[string]*Preference),
	}
}

func key(userID string, nt notification.Type, ch notification.Channel) string {
	return fmt.Sprintf("%s|%s|%s", userID, nt, ch)
}

// Get implements Storage.
func (ms *MemoryStorage) Get(ctx context.Context, userID string, nt notification.Type, ch notification.Channel) (*Preference, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	pref, ok := ms.prefs[key(userID, nt, ch)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *pref
	return &cp, nil
}

// Set stores or replaces a preference. Used by tests and the dev setup;
// production preferences are managed by an external service writing to
// the shared store.
func (ms *MemoryStorage) Set(ctx context.Context, pref Preference) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	pref.UpdatedAt = time.Now()
	ms.prefs[key(pref.UserID, pref.Type, pref.Channel)] = &pref
	return nil
}
