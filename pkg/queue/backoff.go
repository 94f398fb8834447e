package queue

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay scheduled after the given failed
	// attempt. Attempt starts at 1 for the first delivery attempt, so
	// the delay before attempt k equals NextInterval(k-1).
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay per failed attempt:
// Base * 2^(attempt-1), optionally capped and jittered. Jitter defaults
// to zero so the retry schedule stays deterministic; enable it when many
// workers share one failing provider.
type ExponentialBackoff struct {
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

// NextInterval implements BackoffStrategy.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := e.Base
	if base == 0 {
		base = 30 * time.Second
	}

	interval := float64(base) * math.Pow(2, float64(attempt-1))

	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if e.Max > 0 && interval > float64(e.Max) {
		interval = float64(e.Max)
	}

	return time.Duration(interval)
}

// FixedBackoff returns a constant delay between retries.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval implements BackoffStrategy.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy returns the default retry policy: 30s base,
// doubling per attempt, no jitter.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{Base: 30 * time.Second}
}
