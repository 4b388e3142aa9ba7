package project

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/streetworks-impact/internal/model"
)

// Store resolves and maintains projects.
type Store interface {
	// Get returns the project or an error wrapping model.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Project, error)
	// Create inserts a project under a fresh identifier.
	Create(ctx context.Context, in model.ProjectInput) (*model.ProjectReceipt, error)
	// Delete removes a project, wrapping model.ErrNotFound when absent.
	Delete(ctx context.Context, id string) (*model.ProjectReceipt, error)
	// Migrate creates the project schema.
	Migrate(ctx context.Context) error
	Close() error
}

// points returns the primary point followed by every vertex of the
// optional geo_shape line string.
func points(lat, lng float64, shapeWKT string) ([]model.Point, error) {
	pts := []model.Point{{Lat: lat, Lng: lng}}
	if shapeWKT == "" {
		return pts, nil
	}
	g, err := wkt.Unmarshal(shapeWKT)
	if err != nil {
		return nil, eris.Wrap(err, "project: decode geo_shape")
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("project: geo_shape is %T, want line string", g)
	}
	for _, c := range ls.Coords() {
		pts = append(pts, model.Point{Lat: c.Y(), Lng: c.X()})
	}
	return pts, nil
}

// shapeWKT encodes geo_shape coordinates ([lon, lat] pairs) as WKT, or
// returns nil when there are none.
func shapeWKT(coords [][2]float64) (*string, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	s, err := wkt.Marshal(geom.NewLineStringFlat(geom.XY, flat))
	if err != nil {
		return nil, eris.Wrap(err, "project: encode geo_shape")
	}
	return &s, nil
}
