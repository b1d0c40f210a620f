// Package retry provides retry policies with configurable backoff.
//
// A Policy drives Do, which re-invokes an operation until it succeeds,
// returns a non-retryable error, exhausts its attempts, or the context is
// cancelled. Retryability is decided by the errors package classification:
// timeout and handler failures are retried, open-circuit rejections and
// validation errors are not.
package retry

import (
	"context"
	"time"

	"github.com/hookflow/hookflow/internal/errors"
)

// Backoff selects how the delay grows between attempts.
type Backoff string

const (
	// BackoffFixed waits the base delay between every attempt.
	BackoffFixed Backoff = "fixed"
	// BackoffLinear waits delay * attempt.
	BackoffLinear Backoff = "linear"
	// BackoffExponential doubles the delay each attempt.
	BackoffExponential Backoff = "exponential"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 100 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Policy configures retry behavior for an operation.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay" json:"delay"`
	Backoff     Backoff       `mapstructure:"backoff" json:"backoff"`
	MaxDelay    time.Duration `mapstructure:"max_delay" json:"max_delay"`
}

// DefaultPolicy returns the standard policy: three attempts with
// exponential backoff from 100ms, capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Backoff:     BackoffExponential,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.Backoff == "" {
		p.Backoff = BackoffExponential
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// DelayFor returns the wait before the given retry. Attempt numbering is
// 1-based: DelayFor(1) is the pause after the first failure.
func (p Policy) DelayFor(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch p.Backoff {
	case BackoffFixed:
		d = p.Delay
	case BackoffLinear:
		d = p.Delay * time.Duration(attempt)
	default:
		d = p.Delay << (attempt - 1)
	}

	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// Do invokes fn until it succeeds or retries are exhausted. Only errors
// the taxonomy marks retryable trigger another attempt; everything else
// is returned immediately. It returns the number of retries performed
// alongside the final error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	p = p.withDefaults()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt - 1, nil
		}
		if !errors.IsRetryable(err) || attempt == p.MaxAttempts {
			return attempt - 1, err
		}

		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-time.After(p.DelayFor(attempt)):
		}
	}
	return p.MaxAttempts - 1, err
}
