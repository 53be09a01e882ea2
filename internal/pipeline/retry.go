package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"movie-dq-pipeline/internal/model"
)

// DefaultRetryConfigs holds the retry behavior per operation type
var DefaultRetryConfigs = map[string]model.RetryConfig{
	"ingestion": {
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	},
	"export": {
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	},
}

// permanentError marks an error that must not be retried
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry runs op until it succeeds, returns a Permanent error, the attempts
// are exhausted or ctx is done. The last error is returned wrapped.
func Retry(ctx context.Context, cfg model.RetryConfig, op func(attempt int) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if pe, ok := lastErr.(permanentError); ok {
			return pe.err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoffDelay(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// backoffDelay calculates the wait before the next attempt using
// exponential backoff capped at MaxDelay.
func backoffDelay(cfg model.RetryConfig, attempt int) time.Duration {
	multiplier := cfg.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(cfg.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter && delay > 0 {
		// ±10%
		delay += delay * 0.1 * (rand.Float64()*2 - 1)
	}
	return time.Duration(delay)
}
