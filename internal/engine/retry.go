package engine

import (
	"context"
	"time"
)

// RetryConfig controls how a turn recovers from transient provider
// failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// Multiplier is applied to Delay on each further retry. Values below 1
	// keep the delay fixed.
	Multiplier float64

	// MaxDelay caps the wait. Zero means no cap.
	MaxDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Delay:      2 * time.Second,
		Multiplier: 1.0,
		MaxDelay:   30 * time.Second,
	}
}

// Attempts is the total number of provider calls a turn may make.
func (c RetryConfig) Attempts() int { return c.MaxRetries + 1 }

// Backoff returns the wait before retry number n, counting from 1.
func (c RetryConfig) Backoff(n int) time.Duration {
	d := float64(c.Delay)
	if c.Multiplier > 1 {
		for i := 1; i < n; i++ {
			d *= c.Multiplier
			if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
				break
			}
		}
	}
	backoff := time.Duration(d)
	if c.MaxDelay > 0 && backoff > c.MaxDelay {
		backoff = c.MaxDelay
	}
	return backoff
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
