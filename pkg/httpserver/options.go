package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Option customizes a Server before it starts.
type Option func(*config)

// WithAddr sets the listen address, e.g. ":8080".
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr == "" {
			panic("httpserver: addr must not be empty")
		}
		c.addr = addr
	}
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			panic("httpserver: read timeout must not be negative")
		}
		c.readTimeout = d
	}
}

// WithWriteTimeout sets the maximum duration for writing a response.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			panic("httpserver: write timeout must not be negative")
		}
		c.writeTimeout = d
	}
}

// WithIdleTimeout sets how long keep-alive connections may stay idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			panic("httpserver: idle timeout must not be negative")
		}
		c.idleTimeout = d
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d <= 0 {
			panic("httpserver: shutdown timeout must be positive")
		}
		c.shutdownTimeout = d
	}
}

// WithServer supplies a pre-built http.Server. Fields already set on it
// take precedence over the corresponding options.
func WithServer(srv *http.Server) Option {
	return func(c *config) {
		if srv == nil {
			panic("httpserver: server must not be nil")
		}
		c.server = srv
	}
}

// WithLogger sets the logger passed to start and stop hooks.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log == nil {
			panic("httpserver: logger must not be nil")
		}
		c.logger = log
	}
}

// WithStartHook registers a function called right before the listener starts.
func WithStartHook(h func(*slog.Logger)) Option {
	return func(c *config) {
		if h == nil {
			panic("httpserver: start hook must not be nil")
		}
		c.startHooks = append(c.startHooks, h)
	}
}

// WithStopHook registers a function called after graceful shutdown completes.
func WithStopHook(h func(*slog.Logger)) Option {
	return func(c *config) {
		if h == nil {
			panic("httpserver: stop hook must not be nil")
		}
		c.stopHooks = append(c.stopHooks, h)
	}
}
