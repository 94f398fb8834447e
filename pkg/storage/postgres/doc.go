// Package postgres provides pgx-backed implementations of the
// notification, history, preference, and template storage interfaces.
//
// Status transitions and failover channel assignment are expressed as
// conditional updates so the database resolves races between the
// delivery workers and webhook ingestion; callers see the same
// ErrStaleTransition and ErrFailoverAlreadySet sentinels the in-memory
// storages return.
//
// Schema migrations live under migrations/ and are applied with
// pg.Migrate at service start.
package postgres
