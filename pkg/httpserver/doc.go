// Package httpserver provides a thin wrapper around net/http with
// graceful shutdown, environment-driven configuration, and probe
// handlers for liveness and readiness checks.
//
// Typical usage:
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStartHook(func(l *slog.Logger) {
//			l.Info("http server listening", slog.String("addr", cfg.Addr))
//		}),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run blocks until the context is canceled, SIGINT/SIGTERM arrives, or
// the listener fails, then drains in-flight requests within the
// configured shutdown timeout.
package httpserver
