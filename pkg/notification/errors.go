package notification

import "errors"

// Common errors
var (
	// ErrNotFound is returned when a notification does not exist in storage
	ErrNotFound = errors.New("notification not found")

	// ErrHistoryNotFound is returned when no history row matches a lookup
	ErrHistoryNotFound = errors.New("history record not found")

	// ErrStaleTransition is returned when the optimistic status guard rejects
	// an update because the record's current status is not a valid source for
	// the requested transition
	ErrStaleTransition = errors.New("status transition rejected by current state")

	// ErrFailoverAlreadySet is returned when a failover channel is assigned
	// more than once for the same notification
	ErrFailoverAlreadySet = errors.New("failover channel already set")

	// ErrNilNotification is returned when a nil notification is passed to storage
	ErrNilNotification = errors.New("notification cannot be nil")
)
