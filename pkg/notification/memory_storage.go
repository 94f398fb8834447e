package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage and HistoryStorage for testing and
// local development.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Notification
	history []HistoryRecord

	// Index for webhook correlation lookups
	byProviderMsgID map[string][]int
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records:         make(map[uuid.UUID]*Notification),
		byProviderMsgID: make(map[string][]int),
	}
}

// Create implements Storage.
func (ms *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNilNotification
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Clone to prevent external modifications
	cp := *n
	ms.records[n.ID] = &cp
	return nil
}

// Get implements Storage.
func (ms *MemoryStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	n, ok := ms.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *n
	return &cp, nil
}

// Transition implements Storage. The guard check and the update happen
// under one lock, giving the single-record compare-and-set the
// persistent store provides in production.
func (ms *MemoryStorage) Transition(ctx context.Context, id uuid.UUID, to Status, opts ...TransitionOption) error {
	var t transition
	for _, opt := range opts {
		opt(&t)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.records[id]
	if !ok {
		return ErrNotFound
	}

	if !CanTransition(n.Status, to) {
		return ErrStaleTransition
	}

	n.Status = to
	if t.errMsg != nil {
		n.Error = t.errMsg
	}
	if t.clearEr {
		n.Error = nil
	}
	if t.sentAt != nil {
		n.SentAt = t.sentAt
	}
	n.UpdatedAt = time.Now()
	return nil
}

// RecordRetry implements Storage.
func (ms *MemoryStorage) RecordRetry(ctx context.Context, id uuid.UUID, retryCount int, errMsg string, nextRetryAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.records[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now()
	n.RetryCount = retryCount
	n.Error = &errMsg
	n.LastRetryAt = &now
	n.NextRetryAt = &nextRetryAt
	n.UpdatedAt = now
	return nil
}

// SetFailoverChannel implements Storage.
func (ms *MemoryStorage) SetFailoverChannel(ctx context.Context, id uuid.UUID, ch Channel) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.records[id]
	if !ok {
		return ErrNotFound
	}

	if n.FailoverChannel != nil {
		return ErrFailoverAlreadySet
	}

	n.FailoverChannel = &ch
	n.UpdatedAt = time.Now()
	return nil
}

// SetFailoverStatus implements Storage.
func (ms *MemoryStorage) SetFailoverStatus(ctx context.Context, id uuid.UUID, fs FailoverStatus) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.records[id]
	if !ok {
		return ErrNotFound
	}

	n.FailoverStatus = &fs
	n.UpdatedAt = time.Now()
	return nil
}

// Append implements HistoryStorage.
func (ms *MemoryStorage) Append(ctx context.Context, rec *HistoryRecord) error {
	if rec == nil {
		return ErrNilNotification
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := *rec
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now()
	}

	idx := len(ms.history)
	ms.history = append(ms.history, cp)
	if cp.ProviderMessageID != "" {
		ms.byProviderMsgID[cp.ProviderMessageID] = append(ms.byProviderMsgID[cp.ProviderMessageID], idx)
	}
	return nil
}

// ListByNotification implements HistoryStorage.
func (ms *MemoryStorage) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]HistoryRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []HistoryRecord
	for _, rec := range ms.history {
		if rec.NotificationID == notificationID {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// LatestByProviderMessageID implements HistoryStorage.
func (ms *MemoryStorage) LatestByProviderMessageID(ctx context.Context, providerMessageID string) (*HistoryRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	idxs, ok := ms.byProviderMsgID[providerMessageID]
	if !ok || len(idxs) == 0 {
		return nil, ErrHistoryNotFound
	}

	latest := ms.history[idxs[0]]
	for _, i := range idxs[1:] {
		if !ms.history[i].OccurredAt.Before(latest.OccurredAt) {
			latest = ms.history[i]
		}
	}

	cp := latest
	return &cp, nil
}
