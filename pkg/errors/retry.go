package errors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Retry defaults for calls against the GitHub host.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultJitter     = 0.4
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns the retry policy used for host calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that produce a value.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return result, Wrapf(lastErr, "cancelled after %d attempts", attempt)
			}
			return result, Wrap(err, "cancelled before first attempt")
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return result, Wrapf(lastErr, "cancelled during backoff (attempt %d/%d)", attempt+1, cfg.MaxRetries)
		case <-time.After(CalculateBackoff(cfg.BaseDelay, cfg.MaxDelay, attempt, cfg.Jitter)):
		}
	}

	if !IsRetryable(lastErr) {
		return result, lastErr
	}
	return result, Wrapf(lastErr, "failed after %d retries", cfg.MaxRetries)
}

// CalculateBackoff returns min(base*2^attempt, max) scaled by a random factor
// in [1-jitter/2, 1+jitter/2].
func CalculateBackoff(base, maxDelay time.Duration, attempt int, jitter float64) time.Duration {
	expDelay := float64(base) * math.Pow(2, float64(attempt))
	if expDelay > float64(maxDelay) {
		expDelay = float64(maxDelay)
	}

	return time.Duration(expDelay * (1.0 - jitter/2 + jitter*rand.Float64()))
}
