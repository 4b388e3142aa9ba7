package spatial

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkt"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/sells-group/streetworks-impact/internal/model"
)

// SQLite reads reference datasets from a local SQLite file. Rows are
// prefiltered by a bounding box; Lookup applies the exact radius.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite reference database and configures WAL mode.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open reference")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteReferenceSchema = `
CREATE TABLE IF NOT EXISTS postcodes (
	postcode   TEXT PRIMARY KEY,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	population INTEGER,
	households INTEGER
);

CREATE TABLE IF NOT EXISTS bus_stops (
	atco_code   TEXT PRIMARY KEY,
	common_name TEXT NOT NULL DEFAULT '',
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	operators   TEXT NOT NULL DEFAULT '[]',
	routes      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS road_segments (
	segment_id         TEXT PRIMARY KEY,
	usrn               INTEGER NOT NULL DEFAULT 0,
	geom_wkt           TEXT NOT NULL,
	min_lat            REAL NOT NULL,
	min_lng            REAL NOT NULL,
	max_lat            REAL NOT NULL,
	max_lng            REAL NOT NULL,
	traffic_sensitive  INTEGER NOT NULL DEFAULT 0,
	strategic_route    INTEGER NOT NULL DEFAULT 0,
	winter_maintenance INTEGER NOT NULL DEFAULT 0,
	traffic_signals    INTEGER NOT NULL DEFAULT 0,
	control_systems    TEXT NOT NULL DEFAULT '[]',
	authority          TEXT NOT NULL DEFAULT '',
	designations       TEXT NOT NULL DEFAULT '[]',
	operational_state  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_postcodes_lat_lng ON postcodes(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_bus_stops_lat_lng ON bus_stops(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_road_segments_bbox ON road_segments(min_lat, max_lat);
`

// Migrate creates the reference tables if they do not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteReferenceSchema)
	return eris.Wrap(err, "sqlite: migrate reference")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle for loading reference rows.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Postcodes returns the postcode source.
func (s *SQLite) Postcodes() Source[model.Postcode] {
	return SourceFunc[model.Postcode](s.postcodesNear)
}

// BusStops returns the bus stop source.
func (s *SQLite) BusStops() Source[model.BusStop] {
	return SourceFunc[model.BusStop](s.busStopsNear)
}

// RoadSegments returns the road segment source.
func (s *SQLite) RoadSegments() Source[model.RoadSegment] {
	return SourceFunc[model.RoadSegment](s.roadSegmentsNear)
}

// bbox is a lat/lng box that contains every point within a radius.
type bbox struct {
	minLat, minLng, maxLat, maxLng float64
}

func boundsAround(p model.Point, radiusMeters float64) bbox {
	dLat := radiusMeters / EarthRadiusMeters * 180 / math.Pi
	dLng := 180.0
	if c := math.Cos(p.Lat * math.Pi / 180); c > 1e-9 {
		dLng = math.Min(180, dLat/c)
	}
	// Small margin so the spherical boundary never falls outside the box.
	dLat *= 1.01
	dLng *= 1.01
	return bbox{
		minLat: p.Lat - dLat, maxLat: p.Lat + dLat,
		minLng: p.Lng - dLng, maxLng: p.Lng + dLng,
	}
}

func (s *SQLite) postcodesNear(ctx context.Context, p model.Point, radius float64) ([]model.Postcode, error) {
	b := boundsAround(p, radius)
	rows, err := s.db.QueryContext(ctx, `
		SELECT postcode, latitude, longitude, population, households
		FROM postcodes
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY postcode`,
		b.minLat, b.maxLat, b.minLng, b.maxLng)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query postcodes near")
	}
	defer rows.Close()

	var out []model.Postcode
	for rows.Next() {
		var (
			pc          model.Postcode
			pop, hholds sql.NullInt64
		)
		if err := rows.Scan(&pc.Postcode, &pc.Location.Lat, &pc.Location.Lng, &pop, &hholds); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan postcode")
		}
		pc.Population = nullInt(pop)
		pc.Households = nullInt(hholds)
		out = append(out, pc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate postcodes")
}

func (s *SQLite) busStopsNear(ctx context.Context, p model.Point, radius float64) ([]model.BusStop, error) {
	b := boundsAround(p, radius)
	rows, err := s.db.QueryContext(ctx, `
		SELECT atco_code, common_name, latitude, longitude, operators, routes
		FROM bus_stops
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY atco_code`,
		b.minLat, b.maxLat, b.minLng, b.maxLng)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query bus stops near")
	}
	defer rows.Close()

	var out []model.BusStop
	for rows.Next() {
		var (
			st                model.BusStop
			operators, routes string
		)
		if err := rows.Scan(&st.ATCOCode, &st.CommonName, &st.Location.Lat, &st.Location.Lng, &operators, &routes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bus stop")
		}
		if err := json.Unmarshal([]byte(operators), &st.Operators); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode operators for stop %s", st.ATCOCode)
		}
		if err := json.Unmarshal([]byte(routes), &st.Routes); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode routes for stop %s", st.ATCOCode)
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate bus stops")
}

func (s *SQLite) roadSegmentsNear(ctx context.Context, p model.Point, radius float64) ([]model.RoadSegment, error) {
	b := boundsAround(p, radius)
	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_id, usrn, geom_wkt, traffic_sensitive, strategic_route,
		       winter_maintenance, traffic_signals, control_systems, authority,
		       designations, operational_state
		FROM road_segments
		WHERE max_lat >= ? AND min_lat <= ? AND max_lng >= ? AND min_lng <= ?
		ORDER BY segment_id`,
		b.minLat, b.maxLat, b.minLng, b.maxLng)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query road segments near")
	}
	defer rows.Close()

	var out []model.RoadSegment
	for rows.Next() {
		var (
			seg                    model.RoadSegment
			geomWKT                string
			controls, designations string
		)
		if err := rows.Scan(
			&seg.Key, &seg.USRN, &geomWKT, &seg.TrafficSensitive, &seg.StrategicRoute,
			&seg.WinterMaintenance, &seg.TrafficSignals, &controls, &seg.Authority,
			&designations, &seg.OperationalState,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan road segment")
		}
		g, err := wkt.Unmarshal(geomWKT)
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedRecord, "segment %s: %v", seg.Key, err)
		}
		seg.Geom = g
		if err := json.Unmarshal([]byte(controls), &seg.ControlSystems); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode control systems for segment %s", seg.Key)
		}
		if err := json.Unmarshal([]byte(designations), &seg.Designations); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode designations for segment %s", seg.Key)
		}
		out = append(out, seg)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate road segments")
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
