// Package roadapi fetches road segments from an Overpass API endpoint and
// maps OpenStreetMap highway ways onto the road network model.
package roadapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/resilience"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Config configures a Client.
type Config struct {
	Endpoint    string
	Timeout     time.Duration
	MaxParallel int
}

// Client queries Overpass for highway ways near a point.
type Client struct {
	api     overpass.Client
	timeout time.Duration
	log     *zap.Logger
}

// New creates a Client. Zero values fall back to DefaultEndpoint, a 30s
// timeout and two parallel requests.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 2
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: statusTransport{next: http.DefaultTransport},
	}
	return &Client{
		api:     overpass.NewWithSettings(cfg.Endpoint, cfg.MaxParallel, httpClient),
		timeout: cfg.Timeout,
		log:     zap.L().With(zap.String("component", "roadapi")),
	}
}

type queryResult struct {
	res overpass.Result
	err error
}

// Near returns the road segments Overpass reports around p. It satisfies
// the spatial source contract for road segments.
//
// The overpass client takes no context, so the query runs in its own
// goroutine and Near returns as soon as ctx is done. The abandoned request
// still ends within the client timeout.
func (c *Client) Near(ctx context.Context, p model.Point, radiusMeters float64) ([]model.RoadSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	q := Query(p, radiusMeters, c.timeout)
	done := make(chan queryResult, 1)
	go func() {
		res, err := c.api.Query(q)
		done <- queryResult{res: res, err: err}
	}()

	var res overpass.Result
	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "roadapi: overpass query")
	case r := <-done:
		if r.err != nil {
			return nil, eris.Wrap(r.err, "roadapi: overpass query")
		}
		res = r.res
	}

	ways := make([]way, 0, len(res.Ways))
	for _, w := range res.Ways {
		ww := way{id: w.ID, tags: w.Tags}
		for _, n := range w.Nodes {
			ww.nodes = append(ww.nodes, node{lat: n.Lat, lon: n.Lon, tags: n.Tags})
		}
		ways = append(ways, ww)
	}

	segs := segments(ways)
	c.log.Debug("overpass ways fetched",
		zap.Float64("lat", p.Lat),
		zap.Float64("lng", p.Lng),
		zap.Int("ways", len(res.Ways)),
		zap.Int("segments", len(segs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return segs, nil
}

// Query builds the Overpass QL for highway ways within radiusMeters of p,
// with their nodes.
func Query(p model.Point, radiusMeters float64, timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if secs <= 0 {
		secs = 25
	}
	return fmt.Sprintf(
		`[out:json][timeout:%d];way(around:%s,%s,%s)["highway"];out body;>;out body qt;`,
		secs,
		strconv.FormatFloat(radiusMeters, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lng, 'f', -1, 64),
	)
}

// way and node are the parts of an Overpass result the mapping reads.
type way struct {
	id    int64
	tags  map[string]string
	nodes []node
}

type node struct {
	lat, lon float64
	tags     map[string]string
}

var strategicHighways = map[string]bool{
	"motorway": true, "motorway_link": true,
	"trunk": true, "trunk_link": true,
	"primary": true, "primary_link": true,
}

// segments maps highway ways onto road segments, ordered by way id. Ways
// without nodes cannot be placed and are skipped.
func segments(ways []way) []model.RoadSegment {
	sort.Slice(ways, func(i, j int) bool { return ways[i].id < ways[j].id })

	out := make([]model.RoadSegment, 0, len(ways))
	for _, w := range ways {
		if len(w.nodes) == 0 {
			continue
		}
		out = append(out, segment(w))
	}
	return out
}

func segment(w way) model.RoadSegment {
	highway := w.tags["highway"]
	seg := model.RoadSegment{
		Key:               "osm:way:" + strconv.FormatInt(w.id, 10),
		StrategicRoute:    strategicHighways[highway],
		WinterMaintenance: w.tags["winter_service"] == "yes",
		Authority:         w.tags["operator"],
		Designations:      splitList(w.tags["designation"]),
		OperationalState:  operationalState(w.tags),
	}
	seg.TrafficSensitive = seg.StrategicRoute || highway == "secondary" || highway == "secondary_link"
	if usrn, err := strconv.ParseInt(strings.TrimSpace(w.tags["usrn"]), 10, 64); err == nil && usrn > 0 {
		seg.USRN = usrn
	}

	flat := make([]float64, 0, 2*len(w.nodes))
	controls := map[string]bool{}
	for _, n := range w.nodes {
		flat = append(flat, n.lon, n.lat)
		if n.tags["highway"] == "traffic_signals" || n.tags["crossing"] == "traffic_signals" {
			seg.TrafficSignals++
			if sys := n.tags["traffic_signals"]; sys != "" {
				controls[sys] = true
			}
		}
	}
	if len(w.nodes) == 1 {
		seg.Geom = geom.NewPointFlat(geom.XY, flat).SetSRID(4326)
	} else {
		seg.Geom = geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326)
	}
	for sys := range controls {
		seg.ControlSystems = append(seg.ControlSystems, sys)
	}
	sort.Strings(seg.ControlSystems)
	return seg
}

func operationalState(tags map[string]string) string {
	switch {
	case tags["highway"] == "construction":
		return "under construction"
	case tags["access"] == "no":
		return "closed"
	default:
		return "open"
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// statusTransport turns non-2xx Overpass responses into errors so rate
// limiting (429) and gateway timeouts (504) surface as transient failures.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := resilience.StatusError(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}
