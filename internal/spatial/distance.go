// Package spatial resolves reference records within a fixed radius of
// project locations.
//
// Distances are great-circle distances on a sphere of radius
// EarthRadiusMeters. Reference stores may return a candidate superset; the
// in-process check here decides which records are affected.
package spatial

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/streetworks-impact/internal/model"
)

const (
	// EarthRadiusMeters is the IUGG mean Earth radius. PostGIS uses the same
	// sphere for geography distance when use_spheroid is false.
	EarthRadiusMeters = 6371008.8

	// DefaultRadiusMeters is the affected radius around every project point.
	DefaultRadiusMeters = 500.0
)

// ErrMalformedRecord marks a reference record that cannot be placed.
var ErrMalformedRecord = eris.New("spatial: malformed reference record")

// PointDistance returns the great-circle distance between a and b in meters.
func PointDistance(a, b model.Point) float64 {
	return latLng(a).Distance(latLng(b)).Radians() * EarthRadiusMeters
}

// Distance returns the shortest great-circle distance in meters from p to g.
// Points, line strings and multi line strings are supported; line strings
// are measured to their nearest edge.
func Distance(g geom.T, p model.Point) (float64, error) {
	x := s2.PointFromLatLng(latLng(p))

	switch t := g.(type) {
	case *geom.Point:
		if t == nil || t.Empty() {
			return 0, eris.Wrap(ErrMalformedRecord, "empty point")
		}
		return PointDistance(p, model.Point{Lat: t.Y(), Lng: t.X()}), nil
	case *geom.LineString:
		if t == nil || t.NumCoords() == 0 {
			return 0, eris.Wrap(ErrMalformedRecord, "empty line string")
		}
		return polylineDistance(x, t.Coords()), nil
	case *geom.MultiLineString:
		if t == nil || t.NumLineStrings() == 0 {
			return 0, eris.Wrap(ErrMalformedRecord, "empty multi line string")
		}
		best := math.Inf(1)
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			if ls.NumCoords() == 0 {
				continue
			}
			best = math.Min(best, polylineDistance(x, ls.Coords()))
		}
		if math.IsInf(best, 1) {
			return 0, eris.Wrap(ErrMalformedRecord, "multi line string without coordinates")
		}
		return best, nil
	case nil:
		return 0, eris.Wrap(ErrMalformedRecord, "missing geometry")
	default:
		return 0, eris.Wrapf(ErrMalformedRecord, "unsupported geometry %T", g)
	}
}

// Length returns the great-circle length in meters of a line geometry.
// Points have zero length.
func Length(g geom.T) (float64, error) {
	switch t := g.(type) {
	case *geom.Point:
		return 0, nil
	case *geom.LineString:
		return polylineLength(t.Coords()), nil
	case *geom.MultiLineString:
		var total float64
		for i := 0; i < t.NumLineStrings(); i++ {
			total += polylineLength(t.LineString(i).Coords())
		}
		return total, nil
	case nil:
		return 0, eris.Wrap(ErrMalformedRecord, "missing geometry")
	default:
		return 0, eris.Wrapf(ErrMalformedRecord, "unsupported geometry %T", g)
	}
}

func polylineDistance(x s2.Point, coords []geom.Coord) float64 {
	if len(coords) == 1 {
		return x.Distance(coordPoint(coords[0])).Radians() * EarthRadiusMeters
	}
	best := math.Inf(1)
	prev := coordPoint(coords[0])
	for _, c := range coords[1:] {
		next := coordPoint(c)
		d := s2.DistanceFromSegment(x, prev, next).Radians() * EarthRadiusMeters
		if d < best {
			best = d
		}
		prev = next
	}
	return best
}

func polylineLength(coords []geom.Coord) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += coordPoint(coords[i-1]).Distance(coordPoint(coords[i])).Radians()
	}
	return total * EarthRadiusMeters
}

func latLng(p model.Point) s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

func coordPoint(c geom.Coord) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
}
