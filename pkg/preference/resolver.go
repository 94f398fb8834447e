package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Storage provides read access to stored preferences.
type Storage interface {
	// Get returns the preference for the exact (userID, type, channel)
	// triple, or ErrNotFound when none exists.
	Get(ctx context.Context, userID string, nt notification.Type, ch notification.Channel) (*Preference, error)
}

// Resolver decides whether a (user, notification type, channel) triple
// is allowed to send. It is a pure function of stored state and the
// current clock; it has no side effects.
type Resolver struct {
	storage Storage
	now     func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source, used by tests to pin snooze checks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a new preference resolver.
func NewResolver(storage Storage, opts ...ResolverOption) (*Resolver, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	r := &Resolver{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve reports whether the triple is allowed to send.
//
// Without a stored preference the default policy applies: transactional
// and system notifications are allowed on the email channel, everything
// else is denied. With a stored preference: mute denies, an unexpired
// snooze denies, otherwise the enabled flag decides.
func (r *Resolver) Resolve(ctx context.Context, userID string, nt notification.Type, ch notification.Channel) (bool, error) {
	pref, err := r.storage.Get(ctx, userID, nt, ch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultPolicy(nt, ch), nil
		}
		return false, fmt.Errorf("failed to load preference for user %s: %w", userID, err)
	}

	if pref.Mute {
		return false, nil
	}
	if pref.SnoozeUntil != nil && pref.SnoozeUntil.After(r.now()) {
		return false, nil
	}
	return pref.Enabled, nil
}

// defaultPolicy is the allow rule applied when no preference is stored.
func defaultPolicy(nt notification.Type, ch notification.Channel) bool {
	if ch != notification.ChannelEmail {
		return false
	}
	return nt == notification.TypeTransactional || nt == notification.TypeSystem
}
