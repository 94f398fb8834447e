package queue

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrProcessorNil is returned when a worker is started without a processor
	ErrProcessorNil = errors.New("processor cannot be nil")

	// ErrInvalidPriority is returned when priority is outside the 1-10 range
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")

	// ErrNoJobToClaim is returned by storage when no claimable job exists
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobNotFound is returned when a job does not exist in storage
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotFailed is returned when retrying a job that is not in failed status
	ErrJobNotFailed = errors.New("job is not in failed status")

	// ErrJobActive is returned when deleting an in-flight job; cancellation
	// only prevents future attempts, it never interrupts a running call
	ErrJobActive = errors.New("job is active and cannot be deleted")

	// ErrNonRetryable marks processing failures that must not be retried
	// or failed over, such as a preference policy denial
	ErrNonRetryable = errors.New("non-retryable job failure")
)

// NonRetryable wraps err so the worker discards the job instead of
// scheduling a retry. Check with errors.Is(err, ErrNonRetryable).
func NonRetryable(err error) error {
	return fmt.Errorf("%w: %w", ErrNonRetryable, err)
}
