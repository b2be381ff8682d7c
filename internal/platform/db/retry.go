package db

import (
	"context"
	"errors"

	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

// Read runs an idempotent read, retrying it once on transient storage failure.
// Domain errors and context cancellation are terminal. Writes must never go
// through this helper.
func Read[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err == nil || !retryable(ctx, err) {
		return out, err
	}
	return fn(ctx)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var domainErr *vaxerr.Error
	return !errors.As(err, &domainErr)
}
