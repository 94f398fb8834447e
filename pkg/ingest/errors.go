package ingest

import "errors"

var (
	// ErrStorageNil is returned when a required storage dependency is missing.
	ErrStorageNil = errors.New("storage is nil")

	// ErrUnsupportedProvider is returned when the provider name is not in
	// the supported set.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMalformedPayload is returned when the raw payload does not parse
	// as the provider's event shape.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
