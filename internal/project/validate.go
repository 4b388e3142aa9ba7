// Package project resolves streetworks projects from the project store and
// validates project identifiers.
package project

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/model"
)

// MaxParamLength bounds every path parameter.
const MaxParamLength = 100

// IDPrefix starts every project identifier.
const IDPrefix = "PROJ_"

var (
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
		regexp.MustCompile(`(--|#|/\*|\*/)`),
	}

	safePatterns = map[string]*regexp.Regexp{
		"project_id": regexp.MustCompile(`^PROJ_[A-Z0-9_]+$`),
		"atco_code":  regexp.MustCompile(`^[0-9]{3,}[A-Za-z0-9]*$`),
	}
	generalPattern = regexp.MustCompile(`^[A-Za-z0-9_\-\s.]+$`)
)

// ValidateID checks that id is a well-formed project identifier.
func ValidateID(id string) error {
	return ValidateParam("project_id", id)
}

// ValidateParam checks a named path parameter: non-empty, at most
// MaxParamLength characters, free of SQL keywords and comment tokens, and
// matching the pattern for its name. Failures wrap model.ErrInvalidInput.
func ValidateParam(name, value string) error {
	if value == "" {
		return eris.Wrapf(model.ErrInvalidInput, "%s is empty", name)
	}
	if len(value) > MaxParamLength {
		return eris.Wrapf(model.ErrInvalidInput, "%s longer than %d characters", name, MaxParamLength)
	}
	for _, p := range injectionPatterns {
		if p.MatchString(value) {
			return eris.Wrapf(model.ErrInvalidInput, "%s contains a disallowed pattern", name)
		}
	}
	pattern, ok := safePatterns[name]
	if !ok {
		pattern = generalPattern
	}
	if !pattern.MatchString(value) {
		return eris.Wrapf(model.ErrInvalidInput, "%s has an invalid format", name)
	}
	return nil
}

// NewID returns a fresh identifier: IDPrefix and 12 upper-case hex digits.
func NewID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IDPrefix + strings.ToUpper(hex[:12])
}

// ValidateInput checks a create payload.
func ValidateInput(in model.ProjectInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return eris.Wrap(model.ErrInvalidInput, "title is required")
	}
	if len(in.GeometryCoordinates) != 2 {
		return eris.Wrapf(model.ErrInvalidInput,
			"geometry_coordinates must contain exactly 2 values [lon, lat], got %d", len(in.GeometryCoordinates))
	}
	if !primaryPoint(in).Valid() {
		return eris.Wrapf(model.ErrInvalidInput, "geometry_coordinates %v out of range", in.GeometryCoordinates)
	}
	for i, c := range in.GeoShapeCoordinates {
		if !(model.Point{Lat: c[1], Lng: c[0]}).Valid() {
			return eris.Wrapf(model.ErrInvalidInput, "geo_shape_coordinates[%d] out of range", i)
		}
	}
	if len(in.GeoShapeCoordinates) == 1 {
		return eris.Wrap(model.ErrInvalidInput, "geo_shape_coordinates needs at least 2 points")
	}
	if in.StartDate != nil && in.CompletionDate != nil && in.CompletionDate.Before(*in.StartDate) {
		return eris.Wrap(model.ErrInvalidInput, "completion_date before start_date")
	}
	if in.StartDateYY <= 0 || in.CompletionDateYY <= 0 {
		return eris.Wrap(model.ErrInvalidInput, "start_date_yy and completion_date_yy are required")
	}
	if in.CompletionDateYY < in.StartDateYY {
		return eris.Wrap(model.ErrInvalidInput, "completion_date_yy before start_date_yy")
	}
	return nil
}

func primaryPoint(in model.ProjectInput) model.Point {
	return model.Point{Lat: in.GeometryCoordinates[1], Lng: in.GeometryCoordinates[0]}
}
