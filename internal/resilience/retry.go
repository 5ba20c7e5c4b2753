// Package resilience retries transient failures around page fetches,
// OCR calls, and site visits.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls how often and how patiently a call is retried.
type RetryConfig struct {
	// MaxAttempts counts the first try. Default: 3.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction spreads each delay by ±fraction.
	JitterFraction float64

	// ShouldRetry overrides IsTransient when set.
	ShouldRetry func(err error) bool

	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig suits HTTP calls to OCR and collector APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

// SiteRetryConfig is used for whole site visits: few attempts, long pauses,
// so a flaky login page is not hammered.
func SiteRetryConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.InitialBackoff = 5 * time.Second
	cfg.MaxBackoff = time.Minute
	return cfg
}

// Do runs fn until it succeeds or a retry is not warranted.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value. It gives up when fn returns
// an error that is not retryable, attempts run out, or ctx is done, and
// returns the zero value with the last error.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	s := newSchedule(cfg)

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if attempt >= s.cfg.MaxAttempts || ctx.Err() != nil || !s.retryable(err) {
			return zero, err
		}
		if s.cfg.OnRetry != nil {
			s.cfg.OnRetry(attempt, err)
		}
		if !sleep(ctx, s.delay(attempt, err)) {
			return zero, err
		}
	}
}

// schedule holds a config with its defaults filled in.
type schedule struct {
	cfg RetryConfig
}

func newSchedule(cfg RetryConfig) schedule {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}
	return schedule{cfg: cfg}
}

func (s schedule) retryable(err error) bool {
	return s.cfg.ShouldRetry(err)
}

// delay is the pause after the given failed attempt (1-based). A server's
// Retry-After wins over the computed backoff, capped at MaxBackoff.
func (s schedule) delay(attempt int, err error) time.Duration {
	if after := RetryAfter(err); after > 0 {
		return min(after, s.cfg.MaxBackoff)
	}

	d := float64(s.cfg.InitialBackoff)
	for i := 1; i < attempt && d < float64(s.cfg.MaxBackoff); i++ {
		d *= s.cfg.Multiplier
	}
	d = min(d, float64(s.cfg.MaxBackoff))

	if s.cfg.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * s.cfg.JitterFraction
	}
	return time.Duration(max(d, 0))
}

// sleep waits for d and reports whether ctx was still live afterwards.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(site, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("site", site),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", RetryAfter(err)),
			zap.Error(err),
		)
	}
}
