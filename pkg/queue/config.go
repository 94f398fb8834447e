package queue

import "time"

// Config holds the configuration for one channel's queue and worker pool.
type Config struct {
	PullInterval      time.Duration `env:"QUEUE_PULL_INTERVAL" envDefault:"1s"`
	LockTimeout       time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"2m"`
	BackoffBase       time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"30s"`
	BackoffMax        time.Duration `env:"QUEUE_BACKOFF_MAX" envDefault:"0"`
	EmailConcurrency  int           `env:"QUEUE_EMAIL_CONCURRENCY" envDefault:"10"`
	SMSConcurrency    int           `env:"QUEUE_SMS_CONCURRENCY" envDefault:"5"`
	PushConcurrency   int           `env:"QUEUE_PUSH_CONCURRENCY" envDefault:"10"`
	CompletedMaxCount int           `env:"QUEUE_COMPLETED_MAX_COUNT" envDefault:"1000"`
	CompletedMaxAge   time.Duration `env:"QUEUE_COMPLETED_MAX_AGE" envDefault:"1h"`
	FailedMaxCount    int           `env:"QUEUE_FAILED_MAX_COUNT" envDefault:"5000"`
}
