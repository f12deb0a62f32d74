package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig shapes the backoff schedule for retried calls.
type RetryConfig struct {
	// MaxAttempts counts the first try, so 1 disables retries. Default 3.
	MaxAttempts int

	// InitialBackoff is the sleep before the first retry. Default 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the schedule. Default 10s.
	MaxBackoff time.Duration

	// Multiplier grows the sleep between attempts. Default 2.
	Multiplier float64

	// JitterFraction spreads each sleep by up to ±fraction. Default 0.25.
	JitterFraction float64

	// OnRetry, when set, observes each retry before its sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig is the schedule used against the forecast service.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (cfg RetryConfig) normalized() RetryConfig {
	out := cfg
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 500 * time.Millisecond
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = 10 * time.Second
	}
	if out.Multiplier <= 0 {
		out.Multiplier = 2.0
	}
	if out.JitterFraction < 0 {
		out.JitterFraction = 0
	}
	return out
}

// DoVal calls fn until it succeeds, the error is permanent, the context
// ends, or the attempt budget runs out. The value of the successful
// call is returned as-is; otherwise the last error wins.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		retriable := IsTransient(err) && ctx.Err() == nil && attempt < cfg.MaxAttempts-1
		if !retriable {
			return zero, lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}
		if !sleepCtx(ctx, computeBackoff(attempt, cfg)) {
			return zero, lastErr
		}
	}
}

// sleepCtx waits for d, reporting false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	base := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	base = math.Min(base, float64(cfg.MaxBackoff))
	if cfg.JitterFraction > 0 {
		base *= 1 + cfg.JitterFraction*(rand.Float64()*2-1)
	}
	return time.Duration(math.Max(base, 0))
}

// RetryLogger builds an OnRetry callback that logs attempts against the
// named service.
func RetryLogger(service string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying call",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
