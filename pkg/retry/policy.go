// Package retry provides retry policies and a clock-driven retry loop,
// used by the netio client for connection establishment.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy decides whether and when a failed operation is attempted again.
type Policy interface {
	// ShouldRetry determines whether to retry after attempt failures
	ShouldRetry(err error, attempt int) bool

	// NextDelay returns the delay before the next retry
	NextDelay(attempt int) time.Duration
}

// FixedDelay retries up to maxAttempts times with a constant pause.
type FixedDelay struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixedDelay creates a fixed delay policy
func NewFixedDelay(maxAttempts int, delay time.Duration) *FixedDelay {
	return &FixedDelay{maxAttempts: maxAttempts, delay: delay}
}

// ShouldRetry determines whether to retry
func (p *FixedDelay) ShouldRetry(err error, attempt int) bool {
	return attempt < p.maxAttempts
}

// NextDelay returns the delay before the next retry
func (p *FixedDelay) NextDelay(attempt int) time.Duration {
	return p.delay
}

// ExponentialBackoff retries with exponentially growing delays, capped at
// maxDelay, with optional full jitter to spread reconnect storms.
type ExponentialBackoff struct {
	maxAttempts  int
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       bool
}

// BackoffOption configures an ExponentialBackoff
type BackoffOption func(*ExponentialBackoff)

// WithMultiplier sets the per-attempt delay growth factor
func WithMultiplier(multiplier float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		if multiplier > 1 {
			b.multiplier = multiplier
		}
	}
}

// WithMaxDelay caps the delay between attempts
func WithMaxDelay(maxDelay time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if maxDelay > 0 {
			b.maxDelay = maxDelay
		}
	}
}

// WithJitter randomizes each delay within [delay/2, delay]
func WithJitter() BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = true
	}
}

// NewExponentialBackoff creates an exponential backoff policy with a 2x
// multiplier and a 30s delay cap by default.
func NewExponentialBackoff(maxAttempts int, initialDelay time.Duration, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ShouldRetry determines whether to retry
func (b *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	return attempt < b.maxAttempts
}

// NextDelay returns the delay before the next retry
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	delay := time.Duration(float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1)))
	if delay > b.maxDelay || delay <= 0 {
		delay = b.maxDelay
	}

	if b.jitter {
		half := delay / 2
		delay = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return delay
}
