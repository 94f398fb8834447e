package dispatch

import "errors"

var (
	// ErrStorageNil is returned when a required storage dependency is missing.
	ErrStorageNil = errors.New("storage is nil")

	// ErrResolverNil is returned when the preference resolver is missing.
	ErrResolverNil = errors.New("preference resolver is nil")

	// ErrRendererNil is returned when the template renderer is missing.
	ErrRendererNil = errors.New("template renderer is nil")

	// ErrQueueManagerNil is returned when the queue manager is missing.
	ErrQueueManagerNil = errors.New("queue manager is nil")

	// ErrUnknownChannel is returned when no queue is configured for a channel.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidInput is returned when a submit request fails validation.
	ErrInvalidInput = errors.New("invalid submit input")

	// ErrPreferenceBlocked signals that the user's preferences deny the
	// (type, channel) pair. It is a policy decision, not a transient
	// failure: no provider call, no retry, no failover.
	ErrPreferenceBlocked = errors.New("blocked by user preference")
)

// ReasonPreferenceBlocked is the error text recorded on the notification
// and its history row when a preference gate denies delivery.
const ReasonPreferenceBlocked = "PREFERENCE_BLOCKED"
