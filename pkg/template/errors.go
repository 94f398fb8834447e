package template

import "errors"

// Common errors
var (
	// ErrNotFound is returned when no active template matches the triple
	ErrNotFound = errors.New("template not found")

	// ErrStorageNil is returned when a nil storage is provided
	ErrStorageNil = errors.New("storage cannot be nil")
)
