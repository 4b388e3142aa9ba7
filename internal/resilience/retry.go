package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds retries of transient upstream failures.
type RetryConfig struct {
	// Attempts is the total number of tries. 1 disables retry. Default 3.
	Attempts int

	// Backoff is the first delay; it doubles per attempt up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration

	// Jitter spreads each delay by ±Jitter of its length.
	Jitter float64

	// Retryable overrides IsTransient.
	Retryable func(err error) bool
}

// DefaultRetryConfig returns three attempts starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:   3,
		Backoff:    200 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Jitter:     0.2,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var (
		zero T
		err  error
	)
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= cfg.Attempts {
			return zero, err
		}

		delay := backoff(attempt, cfg)
		zap.L().Warn("retrying upstream call",
			zap.String("upstream", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := math.Min(float64(cfg.Backoff)*math.Pow(2, float64(attempt-1)), float64(cfg.MaxBackoff))
	if cfg.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * cfg.Jitter
	}
	return time.Duration(math.Max(d, 0))
}
