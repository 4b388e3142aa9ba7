package roadapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/resilience"
)

var westminster = model.Point{Lat: 51.5007, Lng: -0.1246}

func TestQuery(t *testing.T) {
	q := Query(westminster, 500, 25*time.Second)
	assert.Equal(t,
		`[out:json][timeout:25];way(around:500,51.5007,-0.1246)["highway"];out body;>;out body qt;`,
		q)

	assert.Contains(t, Query(westminster, 500, 0), "[timeout:25]")
}

func TestSegments_Mapping(t *testing.T) {
	ways := []way{
		{
			id: 20,
			tags: map[string]string{
				"highway":        "primary",
				"operator":       "Transport for London",
				"designation":    "Red Route; A Road",
				"winter_service": "yes",
				"usrn":           "8400123",
			},
			nodes: []node{
				{lat: 51.5007, lon: -0.1246},
				{lat: 51.5010, lon: -0.1240, tags: map[string]string{"highway": "traffic_signals", "traffic_signals": "SCOOT"}},
				{lat: 51.5013, lon: -0.1234, tags: map[string]string{"crossing": "traffic_signals"}},
			},
		},
		{
			id:    10,
			tags:  map[string]string{"highway": "construction"},
			nodes: []node{{lat: 51.5, lon: -0.12}},
		},
		{
			id:   30,
			tags: map[string]string{"highway": "residential"},
		},
	}

	segs := segments(ways)
	require.Len(t, segs, 2, "ways without nodes are skipped")

	first := segs[0]
	assert.Equal(t, "osm:way:10", first.Key)
	assert.Equal(t, "under construction", first.OperationalState)
	assert.IsType(t, &geom.Point{}, first.Geom)
	assert.False(t, first.TrafficSensitive)

	primary := segs[1]
	assert.Equal(t, "osm:way:20", primary.Key)
	assert.Equal(t, int64(8400123), primary.USRN)
	assert.True(t, primary.StrategicRoute)
	assert.True(t, primary.TrafficSensitive)
	assert.True(t, primary.WinterMaintenance)
	assert.Equal(t, 2, primary.TrafficSignals)
	assert.Equal(t, []string{"SCOOT"}, primary.ControlSystems)
	assert.Equal(t, "Transport for London", primary.Authority)
	assert.Equal(t, []string{"Red Route", "A Road"}, primary.Designations)
	assert.Equal(t, "open", primary.OperationalState)
	require.IsType(t, &geom.LineString{}, primary.Geom)
	assert.Equal(t, 3, primary.Geom.(*geom.LineString).NumCoords())
}

func TestOperationalState(t *testing.T) {
	assert.Equal(t, "closed", operationalState(map[string]string{"highway": "service", "access": "no"}))
	assert.Equal(t, "open", operationalState(map[string]string{"highway": "service"}))
}

const overpassBody = `{
  "version": 0.6,
  "generator": "Overpass API",
  "osm3s": {"timestamp_osm_base": "2024-05-01T00:00:00Z", "copyright": "OpenStreetMap contributors"},
  "elements": [
    {"type": "way", "id": 42, "nodes": [1, 2], "tags": {"highway": "secondary", "operator": "Westminster"}},
    {"type": "node", "id": 1, "lat": 51.5007, "lon": -0.1246},
    {"type": "node", "id": 2, "lat": 51.5012, "lon": -0.1239, "tags": {"highway": "traffic_signals"}}
  ]
}`

func TestClient_Near(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(overpassBody))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second})
	segs, err := c.Near(context.Background(), westminster, 500)
	require.NoError(t, err)
	require.Len(t, segs, 1)

	assert.Equal(t, "osm:way:42", segs[0].Key)
	assert.True(t, segs[0].TrafficSensitive)
	assert.Equal(t, "Westminster", segs[0].Authority)
	assert.Equal(t, 1, segs[0].TrafficSignals)
}

func TestClient_NearRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Near(context.Background(), westminster, 500)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestClient_NearCancelled(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{Endpoint: srv.URL}).Near(ctx, westminster, 500)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits)
}

func TestClient_NearCancelledInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New(Config{Endpoint: srv.URL, Timeout: 10 * time.Second}).Near(ctx, westminster, 500)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second, "returns on ctx, not on the client timeout")
}
