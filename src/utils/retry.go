package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const defaultMaxRetries = 3

// Retry runs op with exponential backoff until it succeeds, the retry budget
// is exhausted, or ctx is cancelled. Transient transport failures are retried;
// callers wrap permanent failures with backoff.Permanent to stop early.
func Retry(ctx context.Context, label string, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries), ctx)

	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		log.WithError(err).Warnf("%s: retrying in %s", label, wait)
	})
}

// RetryResult is Retry for operations that return a value.
func RetryResult[T any](ctx context.Context, label string, op func() (T, error)) (T, error) {
	var result T

	err := Retry(ctx, label, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})

	return result, err
}
