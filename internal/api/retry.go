package api

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls how the client retries failed requests.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// Multiplier is the backoff growth factor.
	Multiplier float64
	// Jitter randomizes each delay by up to this fraction in either
	// direction.
	Jitter float64
}

// DefaultRetry returns the retry policy used when none is configured.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// retryable reports whether a status code indicates a transient failure.
func (r RetryConfig) retryable(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// delay computes the backoff before retry number attempt (1-based).
func (r RetryConfig) delay(attempt int) time.Duration {
	d := float64(r.BaseDelay) * math.Pow(r.Multiplier, float64(attempt-1))
	if max := float64(r.MaxDelay); d > max {
		d = max
	}
	if r.Jitter > 0 {
		spread := d * r.Jitter
		d = d - spread + rand.Float64()*2*spread
	}
	return time.Duration(d)
}

// wait sleeps for the attempt's backoff, honoring ctx cancellation.
func (r RetryConfig) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
