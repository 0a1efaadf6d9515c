package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultDelay    = 100 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
)

type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}

func (rc RetryConfig) ToRetryOptions(ctx context.Context) []retry.Option {
	d := DefaultRetryConfig()
	if rc.Attempts == 0 {
		rc.Attempts = d.Attempts
	}
	if rc.Delay <= 0 {
		rc.Delay = d.Delay
	}
	if rc.MaxDelay <= 0 {
		rc.MaxDelay = d.MaxDelay
	}
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

// Connect runs fn until it succeeds or the attempts run out, logging each failure.
func Connect[T any](ctx context.Context, log *zap.Logger, name string, rc RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	opts := append(rc.ToRetryOptions(ctx), retry.OnRetry(func(n uint, err error) {
		log.Warn("dependency not ready", zap.String("dependency", name), zap.Uint("attempt", n+1), zap.Error(err))
	}))
	return retry.DoWithData(func() (T, error) {
		return fn(ctx)
	}, opts...)
}
