package services

import (
	"context"
	"errors"
	"time"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/metrics"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a unit of work is re-run after a transient
// failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// retrier re-runs a unit of work after transient store or lock failures.
// Logic errors end the loop at once and are returned untouched.
type retrier struct {
	attempts int
	initial  time.Duration
	log      *zap.Logger
}

func newRetrier(policy RetryPolicy, log *zap.Logger) retrier {
	attempts, initial := policy.Attempts, policy.Backoff
	if attempts < 1 {
		attempts = 1
	}
	if initial <= 0 {
		initial = 50 * time.Millisecond
	}
	return retrier{attempts: attempts, initial: initial, log: log}
}

// do runs fn until it succeeds, fails permanently or the attempts run out.
// op is a fixed operation name used as a metric label; per-call identifiers
// belong in fields.
func (r retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error, fields ...zap.Field) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = 20 * r.initial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(ctx)
		if err != nil && !apperrors.IsRetryable(err) && ctx.Err() == nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.Retries.WithLabelValues(op).Inc()
			r.log.Warn("retrying after transient failure",
				append([]zap.Field{zap.String("op", op), zap.Duration("next", next), zap.Error(err)}, fields...)...)
		}),
	)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if apperrors.IsRetryable(err) || ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &apperrors.UnavailableError{Op: op, Err: err}
	}
	return err
}
