package spatial

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/streetworks-impact/internal/model"
)

func stop(code string, p model.Point) model.BusStop {
	return model.BusStop{ATCOCode: code, Location: p}
}

// staticSource returns every record regardless of the query point.
func staticSource[T Record](recs ...T) Source[T] {
	return SourceFunc[T](func(context.Context, model.Point, float64) ([]T, error) {
		return recs, nil
	})
}

func TestLookup_FiltersByRadius(t *testing.T) {
	src := staticSource(
		stop("A", north(origin, 100)),
		stop("B", north(origin, 499.9)),
		stop("C", north(origin, 500.1)),
		stop("D", north(origin, 3000)),
	)

	got, err := Lookup(context.Background(), src, []model.Point{origin}, DefaultRadiusMeters)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ATCOCode)
	assert.Equal(t, "B", got[1].ATCOCode)
}

func TestLookup_DedupAcrossPoints(t *testing.T) {
	second := north(origin, 600)
	// Both project points see the shared stop; it counts once.
	src := SourceFunc[model.BusStop](func(_ context.Context, p model.Point, _ float64) ([]model.BusStop, error) {
		shared := stop("SHARED", north(origin, 300))
		if p == origin {
			return []model.BusStop{shared, stop("ONLY-FIRST", origin)}, nil
		}
		return []model.BusStop{shared, stop("ONLY-SECOND", second)}, nil
	})

	got, err := Lookup(context.Background(), src, []model.Point{origin, second}, DefaultRadiusMeters)
	require.NoError(t, err)

	keys := make([]string, 0, len(got))
	for _, s := range got {
		keys = append(keys, s.ATCOCode)
	}
	assert.Equal(t, []string{"SHARED", "ONLY-FIRST", "ONLY-SECOND"}, keys)
}

func TestLookup_WithinAnyPoint(t *testing.T) {
	second := north(origin, 2000)
	src := staticSource(stop("NEAR-SECOND", north(second, 50)))

	got, err := Lookup(context.Background(), src, []model.Point{origin, second}, DefaultRadiusMeters)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLookup_Empty(t *testing.T) {
	got, err := Lookup(context.Background(), staticSource[model.BusStop](), []model.Point{origin}, DefaultRadiusMeters)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = Lookup(context.Background(), staticSource(stop("X", origin)), nil, DefaultRadiusMeters)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookup_QueriesEveryPoint(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc[model.BusStop](func(context.Context, model.Point, float64) ([]model.BusStop, error) {
		calls.Add(1)
		return nil, nil
	})

	points := []model.Point{origin, north(origin, 100), north(origin, 200)}
	_, err := Lookup(context.Background(), src, points, DefaultRadiusMeters)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookup_UpstreamError(t *testing.T) {
	boom := errors.New("connection refused")
	src := SourceFunc[model.BusStop](func(context.Context, model.Point, float64) ([]model.BusStop, error) {
		return nil, boom
	})

	_, err := Lookup(context.Background(), src, []model.Point{origin}, DefaultRadiusMeters)
	require.Error(t, err)

	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.ErrorIs(t, err, boom)
}

func TestLookup_MalformedRecord(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := Lookup(context.Background(), staticSource(stop("", origin)), []model.Point{origin}, DefaultRadiusMeters)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMalformedRecord))
	})

	t.Run("missing geometry", func(t *testing.T) {
		src := staticSource(model.RoadSegment{Key: "seg-1"})
		_, err := Lookup(context.Background(), src, []model.Point{origin}, DefaultRadiusMeters)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMalformedRecord))
	})
}

func TestLookup_InvalidRadius(t *testing.T) {
	_, err := Lookup(context.Background(), staticSource[model.BusStop](), []model.Point{origin}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radius must be positive")
}
