package preference

import "errors"

// Common errors
var (
	// ErrNotFound is returned when no preference exists for the triple
	ErrNotFound = errors.New("preference not found")

	// ErrStorageNil is returned when a nil storage is provided
	ErrStorageNil = errors.New("storage cannot be nil")
)
