package model

import "time"

// Metric names an impact calculation.
type Metric string

const (
	MetricWellbeing   Metric = "wellbeing"
	MetricTransport   Metric = "transport"
	MetricRoadNetwork Metric = "road_network"
)

// Result is implemented by every metric result variant.
type Result interface {
	Metric() Metric
	Header() *Envelope
}

// Envelope carries the fields common to every successful response.
type Envelope struct {
	Success             bool      `json:"success" yaml:"success"`
	ProjectID           string    `json:"project_id" yaml:"project_id"`
	ProjectDurationDays int       `json:"project_duration_days" yaml:"project_duration_days"`
	CalculatedAt        time.Time `json:"calculated_at" yaml:"calculated_at"`
	Version             string    `json:"version" yaml:"version"`
}

// Header returns the envelope for in-place stamping.
func (e *Envelope) Header() *Envelope { return e }

// WellbeingResult is the disruption cost to households near a project.
type WellbeingResult struct {
	Envelope           `yaml:",inline"`
	PostcodeCount      int     `json:"wellbeing_postcode_count" yaml:"wellbeing_postcode_count"`
	TotalPopulation    int64   `json:"wellbeing_total_population" yaml:"wellbeing_total_population"`
	HouseholdsAffected int64   `json:"wellbeing_households_affected" yaml:"wellbeing_households_affected"`
	TotalImpact        float64 `json:"wellbeing_total_impact" yaml:"wellbeing_total_impact"`
	Currency           string  `json:"currency" yaml:"currency"`
}

// Metric implements Result.
func (*WellbeingResult) Metric() Metric { return MetricWellbeing }

// TransportResult counts the bus network touched by a project.
type TransportResult struct {
	Envelope       `yaml:",inline"`
	StopsAffected  int `json:"transport_stops_affected" yaml:"transport_stops_affected"`
	OperatorsCount int `json:"transport_operators_count" yaml:"transport_operators_count"`
	RoutesCount    int `json:"transport_routes_count" yaml:"transport_routes_count"`
}

// Metric implements Result.
func (*TransportResult) Metric() Metric { return MetricTransport }

// RoadNetworkResult summarises the road segments touched by a project.
type RoadNetworkResult struct {
	Envelope                     `yaml:",inline"`
	TrafficSensitive             bool     `json:"traffic_sensitive" yaml:"traffic_sensitive"`
	StrategicRoutesCount         int      `json:"strategic_routes_count" yaml:"strategic_routes_count"`
	WinterMaintenanceRoutesCount int      `json:"winter_maintenance_routes_count" yaml:"winter_maintenance_routes_count"`
	UniqueUSRNCount              int      `json:"unique_usrn_count" yaml:"unique_usrn_count"`
	TrafficSignalsCount          int      `json:"traffic_signals_count" yaml:"traffic_signals_count"`
	TrafficControlSystems        []string `json:"traffic_control_systems" yaml:"traffic_control_systems"`
	TotalGeometryLengthMeters    float64  `json:"total_geometry_length_meters" yaml:"total_geometry_length_meters"`
	ResponsibleAuthorities       []string `json:"responsible_authorities" yaml:"responsible_authorities"`
	AuthorityCount               int      `json:"authority_count" yaml:"authority_count"`
	DesignationTypes             []string `json:"designation_types" yaml:"designation_types"`
	OperationalStates            []string `json:"operational_states" yaml:"operational_states"`
}

// Metric implements Result.
func (*RoadNetworkResult) Metric() Metric { return MetricRoadNetwork }

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ProjectID string `json:"project_id"`
}
