package provider

import "errors"

// Common errors
var (
	// ErrInvalidConfig is returned when a gateway is constructed with
	// missing or malformed configuration
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrSendFailed is returned when a provider rejects or fails a send
	ErrSendFailed = errors.New("failed to send message")

	// ErrGatewayNotConfigured is returned when no gateway exists for a channel
	ErrGatewayNotConfigured = errors.New("no gateway configured for channel")
)
