package spatial

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/streetworks-impact/internal/db"
	"github.com/sells-group/streetworks-impact/internal/model"
)

// DefaultSchema holds the reference tables in the PostGIS store.
const DefaultSchema = "ref"

// nearClause matches rows whose geom is within $3 meters of ($1 lng, $2 lat)
// on the sphere (use_spheroid = false), matching the in-process metric.
const nearClause = `ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3, false)`

// PostGIS reads reference datasets from a PostGIS database.
type PostGIS struct {
	pool   db.Pool
	schema string
}

// NewPostGIS creates a PostGIS reference store. An empty schema selects
// DefaultSchema.
func NewPostGIS(pool db.Pool, schema string) *PostGIS {
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostGIS{pool: pool, schema: schema}
}

func (s *PostGIS) table(name string) string {
	return db.QualifiedTable(s.schema + "." + name)
}

// Postcodes returns the postcode source.
func (s *PostGIS) Postcodes() Source[model.Postcode] {
	return SourceFunc[model.Postcode](s.postcodesNear)
}

// BusStops returns the bus stop source.
func (s *PostGIS) BusStops() Source[model.BusStop] {
	return SourceFunc[model.BusStop](s.busStopsNear)
}

// RoadSegments returns the road segment source.
func (s *PostGIS) RoadSegments() Source[model.RoadSegment] {
	return SourceFunc[model.RoadSegment](s.roadSegmentsNear)
}

func (s *PostGIS) postcodesNear(ctx context.Context, p model.Point, radius float64) ([]model.Postcode, error) {
	sql := fmt.Sprintf(`
		SELECT postcode, latitude, longitude, population, households
		FROM %s
		WHERE %s
		ORDER BY postcode`, s.table("postcodes"), nearClause)

	rows, err := s.pool.Query(ctx, sql, p.Lng, p.Lat, radius)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: query postcodes near")
	}
	defer rows.Close()

	var out []model.Postcode
	for rows.Next() {
		var pc model.Postcode
		if err := rows.Scan(
			&pc.Postcode, &pc.Location.Lat, &pc.Location.Lng,
			&pc.Population, &pc.Households,
		); err != nil {
			return nil, eris.Wrap(err, "spatial: scan postcode row")
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "spatial: iterate postcode rows")
	}
	return out, nil
}

func (s *PostGIS) busStopsNear(ctx context.Context, p model.Point, radius float64) ([]model.BusStop, error) {
	sql := fmt.Sprintf(`
		SELECT atco_code, common_name, latitude, longitude, operators, routes
		FROM %s
		WHERE %s
		ORDER BY atco_code`, s.table("bus_stops"), nearClause)

	rows, err := s.pool.Query(ctx, sql, p.Lng, p.Lat, radius)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: query bus stops near")
	}
	defer rows.Close()

	var out []model.BusStop
	for rows.Next() {
		var st model.BusStop
		if err := rows.Scan(
			&st.ATCOCode, &st.CommonName, &st.Location.Lat, &st.Location.Lng,
			&st.Operators, &st.Routes,
		); err != nil {
			return nil, eris.Wrap(err, "spatial: scan bus stop row")
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "spatial: iterate bus stop rows")
	}
	return out, nil
}

func (s *PostGIS) roadSegmentsNear(ctx context.Context, p model.Point, radius float64) ([]model.RoadSegment, error) {
	sql := fmt.Sprintf(`
		SELECT segment_id, COALESCE(usrn, 0), ST_AsBinary(geom),
		       COALESCE(traffic_sensitive, false), COALESCE(strategic_route, false),
		       COALESCE(winter_maintenance, false), COALESCE(traffic_signals, 0),
		       control_systems, COALESCE(authority, ''), designations,
		       COALESCE(operational_state, '')
		FROM %s
		WHERE %s
		ORDER BY segment_id`, s.table("road_segments"), nearClause)

	rows, err := s.pool.Query(ctx, sql, p.Lng, p.Lat, radius)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: query road segments near")
	}
	defer rows.Close()

	var out []model.RoadSegment
	for rows.Next() {
		var (
			seg     model.RoadSegment
			geomWKB []byte
		)
		if err := rows.Scan(
			&seg.Key, &seg.USRN, &geomWKB,
			&seg.TrafficSensitive, &seg.StrategicRoute,
			&seg.WinterMaintenance, &seg.TrafficSignals,
			&seg.ControlSystems, &seg.Authority, &seg.Designations,
			&seg.OperationalState,
		); err != nil {
			return nil, eris.Wrap(err, "spatial: scan road segment row")
		}
		if len(geomWKB) > 0 {
			g, err := wkb.Unmarshal(geomWKB)
			if err != nil {
				return nil, eris.Wrapf(ErrMalformedRecord, "decode geometry for segment %s: %v", seg.Key, err)
			}
			seg.Geom = g
		}
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "spatial: iterate road segment rows")
	}
	return out, nil
}
