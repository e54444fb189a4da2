package falcon

import (
	"context"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/sirupsen/logrus"
)

// Default retry configuration.
const (
	DefaultAttempts       = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// RetryPolicy controls how rate limited and network failures are retried.
type RetryPolicy struct {
	Attempts       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       DefaultAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// call runs fn under the retry policy. Only errors classified as retryable are
// retried; the returned error is always a *CallError.
func call[T any](ctx context.Context, log logrus.FieldLogger, policy RetryPolicy, op string, fn func() (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}

	start := time.Now()
	out, err := retry.DoWithData(func() (T, error) {
		v, err := fn()
		return v, classify(op, err)
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(policy.InitialBackoff),
		retry.MaxDelay(policy.MaxBackoff),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("%s attempt %d failed, retrying: %v", op, n+1, err)
		}),
	)
	if err != nil {
		var zero T
		return zero, classify(op, err)
	}

	log.Debugf("%s completed in %v", op, time.Since(start))
	return out, nil
}
