package spatial

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/streetworks-impact/internal/model"
)

// Record is a reference record that can be placed and deduplicated.
type Record interface {
	RecordKey() string
	Geometry() geom.T
}

// Source returns reference records near a point. Implementations may
// return records outside the radius; Lookup filters them.
type Source[T Record] interface {
	Near(ctx context.Context, p model.Point, radiusMeters float64) ([]T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T Record] func(ctx context.Context, p model.Point, radiusMeters float64) ([]T, error)

// Near implements Source.
func (f SourceFunc[T]) Near(ctx context.Context, p model.Point, radiusMeters float64) ([]T, error) {
	return f(ctx, p, radiusMeters)
}

// UpstreamError marks a failure reported by a reference Source.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "spatial: reference source: " + e.Err.Error() }

// Unwrap returns the source error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Lookup returns the records within radiusMeters of any of points,
// deduplicated by RecordKey. Each point is queried concurrently. Order is
// first-seen: by point, then by source order. No match yields an empty,
// non-nil slice.
func Lookup[T Record](ctx context.Context, src Source[T], points []model.Point, radiusMeters float64) ([]T, error) {
	if radiusMeters <= 0 {
		return nil, eris.Errorf("spatial: radius must be positive, got %v", radiusMeters)
	}

	candidates := make([][]T, len(points))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			recs, err := src.Near(gctx, p, radiusMeters)
			if err != nil {
				return &UpstreamError{Err: err}
			}
			candidates[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0)
	seen := make(map[string]struct{})
	for _, recs := range candidates {
		for _, rec := range recs {
			key := rec.RecordKey()
			if key == "" {
				return nil, eris.Wrap(ErrMalformedRecord, "record without key")
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			ok, err := withinAny(rec.Geometry(), points, radiusMeters)
			if err != nil {
				return nil, eris.Wrapf(err, "record %s", key)
			}
			if ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// Within reports whether g lies within radiusMeters of p. The boundary is
// inclusive.
func Within(g geom.T, p model.Point, radiusMeters float64) (bool, error) {
	d, err := Distance(g, p)
	if err != nil {
		return false, err
	}
	return d <= radiusMeters, nil
}

func withinAny(g geom.T, points []model.Point, radiusMeters float64) (bool, error) {
	for _, p := range points {
		ok, err := Within(g, p, radiusMeters)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
