// Package retry implements the exponential-backoff retry policy that spec
// §5 pushes onto callers: "the RMI protocol itself has no timeout or
// retry... callers that need one must enforce it externally." Grounded on
// the teacher's pkg/retry/retry.go, adapted to retry on a DFSError's Kind
// rather than the teacher's component-specific error code list — this
// domain only ever wants to retry a wire-layer failure (errors.KindRMI),
// never an application-level rejection like NotFound or IllegalState.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/distfs/distfs/pkg/errors"
)

// Config controls backoff timing and which failure kinds are retryable.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RetryableKinds []errors.Kind
	OnRetry        func(attempt int, err error, delay time.Duration)
}

// DefaultConfig retries only wire-layer failures: five attempts, 100ms
// initial delay doubling up to a 5s cap, with jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		RetryableKinds: []errors.Kind{errors.KindRMI},
	}
}

// Retryer executes a function under Config's backoff policy.
type Retryer struct {
	config Config
}

// New builds a Retryer, filling zero-valued fields from DefaultConfig.
func New(config Config) *Retryer {
	defaults := DefaultConfig()
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier == 0 {
		config.Multiplier = defaults.Multiplier
	}
	if config.RetryableKinds == nil {
		config.RetryableKinds = defaults.RetryableKinds
	}
	return &Retryer{config: config}
}

// Do runs fn under the retry policy, ignoring context cancellation.
func (r *Retryer) Do(fn func() error) error {
	return r.DoWithContext(context.Background(), func(ctx context.Context) error {
		return fn()
	})
}

// DoWithContext runs fn, retrying on a retryable error until MaxAttempts is
// exhausted, ctx is cancelled, or fn succeeds.
func (r *Retryer) DoWithContext(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err, attempt) {
			return err
		}

		if attempt < r.config.MaxAttempts {
			delay := r.calculateDelay(attempt)
			if r.config.OnRetry != nil {
				r.config.OnRetry(attempt, err, delay)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("operation canceled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
}

func (r *Retryer) shouldRetry(err error, attempt int) bool {
	for _, kind := range r.config.RetryableKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		jitter := delay * 0.2 * (rand.Float64()*2 - 1)
		delay += jitter
	}
	return time.Duration(delay)
}
