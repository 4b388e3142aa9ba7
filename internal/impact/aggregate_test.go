package impact

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/streetworks-impact/internal/model"
)

func count(v int64) *int64 { return &v }

func TestAggregateWellbeing(t *testing.T) {
	agg, err := AggregateWellbeing([]model.Postcode{
		{Postcode: "SW1A 1AA", Population: count(120), Households: count(48)},
		{Postcode: "SW1A 2AA", Population: count(300), Households: count(131)},
	})
	require.NoError(t, err)
	assert.Equal(t, WellbeingAggregate{PostcodeCount: 2, TotalPopulation: 420, Households: 179}, agg)
}

func TestAggregateWellbeing_Empty(t *testing.T) {
	agg, err := AggregateWellbeing(nil)
	require.NoError(t, err)
	assert.Zero(t, agg)
}

func TestAggregateWellbeing_Malformed(t *testing.T) {
	tests := []struct {
		name string
		pc   model.Postcode
	}{
		{"missing postcode", model.Postcode{Population: count(1), Households: count(1)}},
		{"missing households", model.Postcode{Postcode: "E1 6AN", Population: count(1)}},
		{"missing population", model.Postcode{Postcode: "E1 6AN", Households: count(1)}},
		{"negative households", model.Postcode{Postcode: "E1 6AN", Population: count(1), Households: count(-2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AggregateWellbeing([]model.Postcode{tt.pc})
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrComputation))
		})
	}
}

func TestAggregateTransport(t *testing.T) {
	agg, err := AggregateTransport([]model.BusStop{
		{ATCOCode: "490000001A", Operators: []string{"Arriva"}, Routes: []string{"11", "24"}},
		{ATCOCode: "490000001B", Operators: []string{"Arriva", "Go-Ahead"}, Routes: []string{"24", "148"}},
		{ATCOCode: "490000001C"},
	})
	require.NoError(t, err)
	assert.Equal(t, TransportAggregate{Stops: 3, Operators: 2, Routes: 3}, agg)
}

func TestAggregateTransport_Malformed(t *testing.T) {
	_, err := AggregateTransport([]model.BusStop{{ATCOCode: " "}})
	assert.True(t, eris.Is(err, model.ErrComputation))

	_, err = AggregateTransport([]model.BusStop{{ATCOCode: "490000001A", Operators: []string{""}}})
	assert.True(t, eris.Is(err, model.ErrComputation))

	_, err = AggregateTransport([]model.BusStop{{ATCOCode: "490000001A", Routes: []string{"11", " "}}})
	assert.True(t, eris.Is(err, model.ErrComputation))
}

func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords).SetSRID(4326)
}

func TestAggregateRoadNetwork(t *testing.T) {
	segs := []model.RoadSegment{
		{
			Key: "a", USRN: 8400123, Geom: line(-0.1419, 51.5014, -0.1419, 51.5024),
			StrategicRoute: true, TrafficSensitive: true, TrafficSignals: 2,
			ControlSystems: []string{"SCOOT"}, Authority: "Westminster",
			Designations: []string{"Red Route"}, OperationalState: "open",
		},
		{
			Key: "b", USRN: 8400123, Geom: line(-0.1419, 51.5024, -0.1409, 51.5024),
			WinterMaintenance: true, TrafficSignals: 1,
			ControlSystems: []string{"MOVA", "SCOOT"}, Authority: "Westminster",
			OperationalState: "closed",
		},
		{
			Key: "c", Geom: line(-0.1409, 51.5024, -0.1409, 51.5030),
			Authority: "TfL", Designations: []string{"Red Route", "Bus Lane"},
		},
	}

	agg, err := AggregateRoadNetwork(segs)
	require.NoError(t, err)

	assert.True(t, agg.TrafficSensitive)
	assert.Equal(t, 1, agg.StrategicRoutes)
	assert.Equal(t, 1, agg.WinterMaintenance)
	assert.Equal(t, 1, agg.UniqueUSRNs, "USRN 0 is not counted")
	assert.Equal(t, 3, agg.TrafficSignals)
	assert.Equal(t, []string{"MOVA", "SCOOT"}, agg.ControlSystems)
	assert.Equal(t, []string{"TfL", "Westminster"}, agg.Authorities)
	assert.Equal(t, []string{"Bus Lane", "Red Route"}, agg.Designations)
	assert.Equal(t, []string{"closed", "open"}, agg.OperationalStates)
	// 0.001° lat ≈ 111.2 m, 0.001° lng at 51.5° ≈ 69.2 m, 0.0006° lat ≈ 66.7 m
	assert.InDelta(t, 247.1, agg.TotalLengthMeters, 1.0)
}

func TestAggregateRoadNetwork_Empty(t *testing.T) {
	agg, err := AggregateRoadNetwork(nil)
	require.NoError(t, err)
	assert.False(t, agg.TrafficSensitive)
	assert.NotNil(t, agg.ControlSystems)
	assert.Empty(t, agg.Authorities)
}

func TestAggregateRoadNetwork_Malformed(t *testing.T) {
	tests := []struct {
		name string
		seg  model.RoadSegment
	}{
		{"missing key", model.RoadSegment{Geom: line(0, 0, 0, 1)}},
		{"missing geometry", model.RoadSegment{Key: "x"}},
		{"negative signals", model.RoadSegment{Key: "x", Geom: line(0, 0, 0, 1), TrafficSignals: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AggregateRoadNetwork([]model.RoadSegment{tt.seg})
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrComputation))
		})
	}
}
