package model

import (
	"math"
	"time"
)

// Point is a WGS84 (EPSG:4326) coordinate.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Project is a streetworks item as resolved from the project store. The
// primary point comes first in Points, followed by any geo_shape vertices.
type Project struct {
	ID             string     `json:"project_id"`
	Title          string     `json:"title"`
	Points         []Point    `json:"points"`
	DurationDays   int        `json:"duration_days"`
	USRN           *int64     `json:"usrn,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProjectInput is the payload accepted by the create endpoint.
type ProjectInput struct {
	ProgrammeID         string       `json:"programme_id,omitempty"`
	Source              string       `json:"source"`
	SWACode             string       `json:"swa_code"`
	Title               string       `json:"title"`
	Scheme              string       `json:"scheme"`
	SimpleTheme         string       `json:"simple_theme"`
	GeoPoint            string       `json:"geo_point"`
	GeometryCoordinates []float64    `json:"geometry_coordinates"`
	GeoShapeCoordinates [][2]float64 `json:"geo_shape_coordinates,omitempty"`
	USRN                *int64       `json:"usrn,omitempty"`
	PostCode            string       `json:"post_code,omitempty"`
	AssetType           string       `json:"asset_type"`
	AssetID             string       `json:"asset_id"`
	StartDate           *time.Time   `json:"start_date,omitempty"`
	StartDateYY         int          `json:"start_date_yy"`
	CompletionDate      *time.Time   `json:"completion_date,omitempty"`
	CompletionDateYY    int          `json:"completion_date_yy"`
	FundingStatus       string       `json:"funding_status"`
	Collaboration       bool         `json:"collaboration"`
}

// ProjectReceipt is returned by project create and delete.
type ProjectReceipt struct {
	Success   bool      `json:"success"`
	ProjectID string    `json:"project_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
