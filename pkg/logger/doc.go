// Package logger builds configured slog loggers with per-environment
// presets, static service attributes, and context-driven attribute
// injection for request-scoped values.
//
// # Basic Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithContextValue("request_id", middleware.RequestIDKey),
//	)
//	logger.SetAsDefault(log)
//
// The attr helpers keep log keys consistent across packages:
//
//	log.Error("delivery failed",
//	    logger.NotificationID(id),
//	    logger.Channel("sms"),
//	    logger.Attempt(2),
//	    logger.Error(err),
//	)
package logger
