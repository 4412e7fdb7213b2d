package twitter

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"feed-archive/internal/metrics"
)

// Policy bounds a retried operation: attempt i waits BaseDelay * Factor^i
// before running, up to MaxAttempts total attempts.
type Policy struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxAttempts int
}

// Two tiers. Critical gates a whole job (followed-user set, backfill
// candidate sets) and gets one more attempt than Normal, which covers the
// many per-item calls inside a fan-out round. Delays run 5s, 25s, 125s.
var (
	PolicyCritical = Policy{BaseDelay: 5 * time.Second, Factor: 5, MaxAttempts: 4}
	PolicyNormal   = Policy{BaseDelay: 5 * time.Second, Factor: 5, MaxAttempts: 3}
)

// Retry runs fn under the policy. Permanent upstream failures are returned
// immediately without further attempts; exhaustion wraps the last cause in
// an *ExhaustedError carrying the attempt count.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	attempts := 0

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.Factor
	eb.RandomizationFactor = 0
	eb.MaxInterval = 24 * time.Hour
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	op := func() error {
		if attempts > 0 {
			metrics.RetryAttempts.Inc()
		}
		attempts++
		v, err := fn(ctx)
		if err != nil {
			if IsPermanentUpstream(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		var zero T
		if IsPermanentUpstream(err) {
			return zero, err
		}
		return zero, &ExhaustedError{Attempts: attempts, Err: err}
	}
	return out, nil
}
