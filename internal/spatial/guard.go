package spatial

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/resilience"
)

// Guard wraps src so transient failures are retried and repeated failures
// open b. Retries happen inside the breaker: one exhausted retry loop is
// one breaker failure.
func Guard[T Record](src Source[T], b *resilience.Breaker, retry resilience.RetryConfig) Source[T] {
	return SourceFunc[T](func(ctx context.Context, p model.Point, radiusMeters float64) ([]T, error) {
		return resilience.Call(ctx, b, func(ctx context.Context) ([]T, error) {
			return resilience.Retry(ctx, b.Name(), retry, func(ctx context.Context) ([]T, error) {
				return src.Near(ctx, p, radiusMeters)
			})
		})
	})
}

// CountsAsFailure is the breaker failure filter for reference sources.
// Malformed records and computation errors are data faults of one query,
// not an outage, so they leave the breaker alone, as does cancellation.
func CountsAsFailure(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case eris.Is(err, ErrMalformedRecord), eris.Is(err, model.ErrComputation):
		return false
	}
	return true
}
