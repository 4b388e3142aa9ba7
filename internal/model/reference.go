package model

import (
	"github.com/twpayne/go-geom"
)

// Postcode is a postcode centroid with census counts. Population and
// Households are nil when the reference row has no value.
type Postcode struct {
	Postcode   string `json:"postcode"`
	Location   Point  `json:"location"`
	Population *int64 `json:"population"`
	Households *int64 `json:"households"`
}

// RecordKey returns the postcode.
func (p Postcode) RecordKey() string { return p.Postcode }

// Geometry returns the centroid as a geom point.
func (p Postcode) Geometry() geom.T { return pointGeom(p.Location) }

// BusStop is a NaPTAN stop with the services calling at it.
type BusStop struct {
	ATCOCode   string   `json:"atco_code"`
	CommonName string   `json:"common_name"`
	Location   Point    `json:"location"`
	Operators  []string `json:"operators"`
	Routes     []string `json:"routes"`
}

// RecordKey returns the ATCO code.
func (s BusStop) RecordKey() string { return s.ATCOCode }

// Geometry returns the stop location as a geom point.
func (s BusStop) Geometry() geom.T { return pointGeom(s.Location) }

// RoadSegment is a section of street with its network classification.
// Key is unique per segment; USRN is zero when unknown.
type RoadSegment struct {
	Key               string   `json:"key"`
	USRN              int64    `json:"usrn"`
	Geom              geom.T   `json:"-"`
	TrafficSensitive  bool     `json:"traffic_sensitive"`
	StrategicRoute    bool     `json:"strategic_route"`
	WinterMaintenance bool     `json:"winter_maintenance"`
	TrafficSignals    int      `json:"traffic_signals"`
	ControlSystems    []string `json:"control_systems"`
	Authority         string   `json:"authority"`
	Designations      []string `json:"designations"`
	OperationalState  string   `json:"operational_state"`
}

// RecordKey returns the segment key.
func (r RoadSegment) RecordKey() string { return r.Key }

// Geometry returns the segment geometry.
func (r RoadSegment) Geometry() geom.T { return r.Geom }

func pointGeom(p Point) geom.T {
	return geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(4326)
}
