package impact

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/project"
	"github.com/sells-group/streetworks-impact/internal/spatial"
)

// ProjectStore resolves project identifiers.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*model.Project, error)
}

// Sources are the reference datasets the calculator joins against.
type Sources struct {
	Postcodes spatial.Source[model.Postcode]
	BusStops  spatial.Source[model.BusStop]
	Roads     spatial.Source[model.RoadSegment]
}

// Settings are the fixed parameters of every calculation.
type Settings struct {
	RadiusMeters  float64
	WellbeingRate float64
	Currency      string
	Version       string
}

// DefaultSettings returns the production parameters.
func DefaultSettings() Settings {
	return Settings{
		RadiusMeters:  spatial.DefaultRadiusMeters,
		WellbeingRate: DefaultWellbeingRate,
		Currency:      "GBP",
		Version:       "1.0.0",
	}
}

// Calculator runs impact calculations. It holds only read-only handles and
// is safe for concurrent use.
type Calculator struct {
	projects ProjectStore
	sources  Sources
	settings Settings
	now      func() time.Time
	log      *zap.Logger
}

// New creates a Calculator. Zero settings fall back to DefaultSettings.
func New(projects ProjectStore, sources Sources, settings Settings) *Calculator {
	def := DefaultSettings()
	if settings.RadiusMeters <= 0 {
		settings.RadiusMeters = def.RadiusMeters
	}
	if settings.WellbeingRate == 0 {
		settings.WellbeingRate = def.WellbeingRate
	}
	if settings.Currency == "" {
		settings.Currency = def.Currency
	}
	if settings.Version == "" {
		settings.Version = def.Version
	}
	return &Calculator{
		projects: projects,
		sources:  sources,
		settings: settings,
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "impact")),
	}
}

// Settings returns the calculator parameters.
func (c *Calculator) Settings() Settings { return c.settings }

// run tracks the progress of one calculation.
type run struct {
	metric  model.Metric
	id      string
	stage   Stage
	project *model.Project
	started time.Time
}

func (r *run) advance(s Stage) { r.stage = s }

// Calculate dispatches to the calculation for metric.
func (c *Calculator) Calculate(ctx context.Context, metric model.Metric, id string) (model.Result, error) {
	var (
		res model.Result
		err error
	)
	switch metric {
	case model.MetricWellbeing:
		res, err = c.Wellbeing(ctx, id)
	case model.MetricTransport:
		res, err = c.Transport(ctx, id)
	case model.MetricRoadNetwork:
		res, err = c.RoadNetwork(ctx, id)
	default:
		return nil, fail(StageReceived, KindInvalidInput, eris.Wrapf(model.ErrInvalidInput, "unknown metric %q", metric))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Wellbeing computes the household disruption cost of a project.
func (c *Calculator) Wellbeing(ctx context.Context, id string) (*model.WellbeingResult, error) {
	r, err := c.resolve(ctx, model.MetricWellbeing, id)
	if err != nil {
		return nil, err
	}

	postcodes, err := spatial.Lookup(ctx, c.sources.Postcodes, r.project.Points, c.settings.RadiusMeters)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageRecordsFetched)

	agg, err := AggregateWellbeing(postcodes)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageAggregated)

	score, err := WellbeingScore(c.settings.WellbeingRate, r.project.DurationDays, agg.Households)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageScoreComputed)

	res := &model.WellbeingResult{
		PostcodeCount:      agg.PostcodeCount,
		TotalPopulation:    agg.TotalPopulation,
		HouseholdsAffected: agg.Households,
		TotalImpact:        score,
		Currency:           c.settings.Currency,
	}
	c.respond(r, res)
	return res, nil
}

// Transport counts the bus stops, operators and routes near a project.
func (c *Calculator) Transport(ctx context.Context, id string) (*model.TransportResult, error) {
	r, err := c.resolve(ctx, model.MetricTransport, id)
	if err != nil {
		return nil, err
	}

	stops, err := spatial.Lookup(ctx, c.sources.BusStops, r.project.Points, c.settings.RadiusMeters)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageRecordsFetched)

	agg, err := AggregateTransport(stops)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageAggregated)
	r.advance(StageScoreComputed)

	res := &model.TransportResult{
		StopsAffected:  agg.Stops,
		OperatorsCount: agg.Operators,
		RoutesCount:    agg.Routes,
	}
	c.respond(r, res)
	return res, nil
}

// RoadNetwork summarises the road segments near a project.
func (c *Calculator) RoadNetwork(ctx context.Context, id string) (*model.RoadNetworkResult, error) {
	r, err := c.resolve(ctx, model.MetricRoadNetwork, id)
	if err != nil {
		return nil, err
	}

	segments, err := spatial.Lookup(ctx, c.sources.Roads, r.project.Points, c.settings.RadiusMeters)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageRecordsFetched)

	agg, err := AggregateRoadNetwork(segments)
	if err != nil {
		return nil, c.failed(r, err)
	}
	r.advance(StageAggregated)
	r.advance(StageScoreComputed)

	res := &model.RoadNetworkResult{
		TrafficSensitive:             agg.TrafficSensitive,
		StrategicRoutesCount:         agg.StrategicRoutes,
		WinterMaintenanceRoutesCount: agg.WinterMaintenance,
		UniqueUSRNCount:              agg.UniqueUSRNs,
		TrafficSignalsCount:          agg.TrafficSignals,
		TrafficControlSystems:        agg.ControlSystems,
		TotalGeometryLengthMeters:    roundTo(agg.TotalLengthMeters, 2),
		ResponsibleAuthorities:       agg.Authorities,
		AuthorityCount:               len(agg.Authorities),
		DesignationTypes:             agg.Designations,
		OperationalStates:            agg.OperationalStates,
	}
	c.respond(r, res)
	return res, nil
}

// resolve validates id and loads the project.
func (c *Calculator) resolve(ctx context.Context, metric model.Metric, id string) (*run, error) {
	r := &run{metric: metric, id: id, stage: StageReceived, started: c.now()}

	if err := project.ValidateID(id); err != nil {
		return nil, c.failed(r, err)
	}
	p, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, c.failed(r, err)
	}
	if len(p.Points) == 0 {
		return nil, c.failed(r, eris.Errorf("project %s has no location", id))
	}
	r.project = p
	r.advance(StageProjectResolved)
	return r, nil
}

func (c *Calculator) failed(r *run, err error) *Error {
	e := fail(r.stage, KindInternal, err)
	r.advance(StageError)
	c.log.Warn("impact calculation failed",
		zap.String("metric", string(r.metric)),
		zap.String("project_id", r.id),
		zap.Stringer("stage", e.Stage),
		zap.Stringer("kind", e.Kind),
		zap.Error(err),
	)
	return e
}

func (c *Calculator) respond(r *run, res model.Result) {
	h := res.Header()
	h.Success = true
	h.ProjectID = r.project.ID
	h.ProjectDurationDays = r.project.DurationDays
	h.CalculatedAt = c.now().UTC()
	h.Version = c.settings.Version
	r.advance(StageResponded)

	c.log.Info("impact calculated",
		zap.String("metric", string(r.metric)),
		zap.String("project_id", r.id),
		zap.Int("points", len(r.project.Points)),
		zap.Duration("elapsed", c.now().Sub(r.started)),
	)
}
