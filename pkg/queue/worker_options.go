package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pullInterval   time.Duration
	lockTimeout    time.Duration
	maxConcurrency int
	backoff        BackoffStrategy
	logger         *slog.Logger
}

// WithPullInterval sets how often the worker checks for new jobs.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets the claim lock duration; it doubles as the
// per-attempt processing timeout.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithMaxConcurrency bounds the number of jobs processed at once.
// Channels are tuned independently; this is a throughput knob, not a
// correctness requirement.
func WithMaxConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithBackoff sets the retry delay policy.
func WithBackoff(b BackoffStrategy) WorkerOption {
	return func(o *workerOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
