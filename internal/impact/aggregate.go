package impact

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/spatial"
)

// WellbeingAggregate sums the census counts of affected postcodes.
type WellbeingAggregate struct {
	PostcodeCount   int
	TotalPopulation int64
	Households      int64
}

// TransportAggregate counts the distinct stops, operators and routes touched.
type TransportAggregate struct {
	Stops     int
	Operators int
	Routes    int
}

// RoadNetworkAggregate summarises affected road segments.
type RoadNetworkAggregate struct {
	TrafficSensitive  bool
	StrategicRoutes   int
	WinterMaintenance int
	UniqueUSRNs       int
	TrafficSignals    int
	ControlSystems    []string
	TotalLengthMeters float64
	Authorities       []string
	Designations      []string
	OperationalStates []string
}

// AggregateWellbeing totals population and households. Postcodes missing
// either count are malformed.
func AggregateWellbeing(postcodes []model.Postcode) (WellbeingAggregate, error) {
	var agg WellbeingAggregate
	for _, pc := range postcodes {
		if strings.TrimSpace(pc.Postcode) == "" {
			return WellbeingAggregate{}, eris.Wrap(model.ErrComputation, "postcode without code")
		}
		if pc.Population == nil || pc.Households == nil {
			return WellbeingAggregate{}, eris.Wrapf(model.ErrComputation, "postcode %s missing census counts", pc.Postcode)
		}
		if *pc.Population < 0 || *pc.Households < 0 {
			return WellbeingAggregate{}, eris.Wrapf(model.ErrComputation, "postcode %s has negative counts", pc.Postcode)
		}
		agg.PostcodeCount++
		agg.TotalPopulation += *pc.Population
		agg.Households += *pc.Households
	}
	return agg, nil
}

// AggregateTransport counts distinct stops, operators and routes.
func AggregateTransport(stops []model.BusStop) (TransportAggregate, error) {
	codes := map[string]struct{}{}
	operators := map[string]struct{}{}
	routes := map[string]struct{}{}

	for _, s := range stops {
		if strings.TrimSpace(s.ATCOCode) == "" {
			return TransportAggregate{}, eris.Wrap(model.ErrComputation, "bus stop without ATCO code")
		}
		codes[s.ATCOCode] = struct{}{}
		for _, op := range s.Operators {
			if strings.TrimSpace(op) == "" {
				return TransportAggregate{}, eris.Wrapf(model.ErrComputation, "stop %s has a blank operator", s.ATCOCode)
			}
			operators[op] = struct{}{}
		}
		for _, r := range s.Routes {
			if strings.TrimSpace(r) == "" {
				return TransportAggregate{}, eris.Wrapf(model.ErrComputation, "stop %s has a blank route", s.ATCOCode)
			}
			routes[r] = struct{}{}
		}
	}
	return TransportAggregate{
		Stops:     len(codes),
		Operators: len(operators),
		Routes:    len(routes),
	}, nil
}

// AggregateRoadNetwork reduces segments to network counts. Distinct string
// sets are returned sorted; segments with USRN 0 do not count as a USRN.
func AggregateRoadNetwork(segments []model.RoadSegment) (RoadNetworkAggregate, error) {
	var agg RoadNetworkAggregate
	usrns := map[int64]struct{}{}
	controls := newStringSet()
	authorities := newStringSet()
	designations := newStringSet()
	states := newStringSet()

	for _, seg := range segments {
		if strings.TrimSpace(seg.Key) == "" {
			return RoadNetworkAggregate{}, eris.Wrap(model.ErrComputation, "road segment without key")
		}
		if seg.USRN < 0 || seg.TrafficSignals < 0 {
			return RoadNetworkAggregate{}, eris.Wrapf(model.ErrComputation, "segment %s has negative counts", seg.Key)
		}
		length, err := spatial.Length(seg.Geom)
		if err != nil {
			return RoadNetworkAggregate{}, eris.Wrapf(model.ErrComputation, "segment %s: %v", seg.Key, err)
		}

		agg.TotalLengthMeters += length
		agg.TrafficSignals += seg.TrafficSignals
		if seg.TrafficSensitive {
			agg.TrafficSensitive = true
		}
		if seg.StrategicRoute {
			agg.StrategicRoutes++
		}
		if seg.WinterMaintenance {
			agg.WinterMaintenance++
		}
		if seg.USRN > 0 {
			usrns[seg.USRN] = struct{}{}
		}
		controls.add(seg.ControlSystems...)
		authorities.add(seg.Authority)
		designations.add(seg.Designations...)
		states.add(seg.OperationalState)
	}

	agg.UniqueUSRNs = len(usrns)
	agg.ControlSystems = controls.sorted()
	agg.Authorities = authorities.sorted()
	agg.Designations = designations.sorted()
	agg.OperationalStates = states.sorted()
	return agg, nil
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return stringSet{} }

// add ignores blank values.
func (s stringSet) add(vals ...string) {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			s[v] = struct{}{}
		}
	}
}

// sorted returns the members in order, never nil.
func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
