package postgres

import "errors"

// ErrNilPool is returned by constructors when no connection pool is provided.
var ErrNilPool = errors.New("connection pool is nil")
