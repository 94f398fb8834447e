// Package pg provides PostgreSQL connectivity for the delivery core:
// pooled connections with startup retry, goose schema migrations, a
// readiness probe, and helpers for classifying common pgx errors.
//
// # Basic Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
// The error helpers keep storage code free of pgx internals:
//
//	if pg.IsNotFoundError(err) {
//	    return notification.ErrNotFound
//	}
package pg
