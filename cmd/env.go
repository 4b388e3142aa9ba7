package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/config"
	"github.com/sells-group/streetworks-impact/internal/db"
	"github.com/sells-group/streetworks-impact/internal/impact"
	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/project"
	"github.com/sells-group/streetworks-impact/internal/resilience"
	"github.com/sells-group/streetworks-impact/internal/roadapi"
	"github.com/sells-group/streetworks-impact/internal/spatial"
)

// env holds the handles opened for one process. Close releases them in
// reverse order.
type env struct {
	Projects   project.Store
	Calculator *impact.Calculator
	Breakers   *resilience.Breakers
	closers    []func()
}

func (e *env) onClose(fn func()) { e.closers = append(e.closers, fn) }

// Close releases every handle.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// referenceSources is implemented by the PostGIS and SQLite reference stores.
type referenceSources interface {
	Postcodes() spatial.Source[model.Postcode]
	BusStops() spatial.Source[model.BusStop]
	RoadSegments() spatial.Source[model.RoadSegment]
}

func initProjectStore(ctx context.Context, e *env, c *config.Config) error {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "impact.db"
		}
		s, err := project.NewSQLite(dsn)
		if err != nil {
			return err
		}
		e.onClose(func() { _ = s.Close() })
		e.Projects = s
	case "postgres":
		pool, err := db.Open(ctx, c.Store.DatabaseURL, &db.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
		if err != nil {
			return eris.Wrap(err, "open project store")
		}
		e.onClose(pool.Close)
		e.Projects = project.NewPostgres(pool)
	default:
		return eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

func initReference(ctx context.Context, e *env, c *config.Config) (referenceSources, error) {
	switch c.Reference.Driver {
	case "sqlite":
		s, err := spatial.OpenSQLite(c.Reference.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.onClose(func() { _ = s.Close() })
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		pool, err := db.Open(ctx, c.Reference.DatabaseURL, &db.PoolConfig{MaxConns: c.Reference.MaxConns})
		if err != nil {
			return nil, eris.Wrap(err, "open reference store")
		}
		e.onClose(pool.Close)
		return spatial.NewPostGIS(pool, c.Reference.Schema), nil
	default:
		return nil, eris.Errorf("unsupported reference driver: %s", c.Reference.Driver)
	}
}

// initEnv opens the project and reference stores and assembles the
// calculator. Each reference source is guarded by its own breaker.
func initEnv(ctx context.Context, c *config.Config) (*env, error) {
	e := &env{}
	if err := initProjectStore(ctx, e, c); err != nil {
		e.Close()
		return nil, err
	}
	ref, err := initReference(ctx, e, c)
	if err != nil {
		e.Close()
		return nil, err
	}

	breakerCfg := resilience.FromBreakerSettings(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs)
	breakerCfg.Counts = spatial.CountsAsFailure
	e.Breakers = resilience.NewBreakers(breakerCfg)
	retry := resilience.FromRetrySettings(c.Resilience.RetryAttempts, c.Resilience.RetryBackoffMs)

	var roads spatial.Source[model.RoadSegment] = ref.RoadSegments()
	if c.Road.Provider == "overpass" {
		roads = roadapi.New(roadapi.Config{
			Endpoint:    c.Road.OverpassURL,
			Timeout:     time.Duration(c.Road.TimeoutSecs) * time.Second,
			MaxParallel: c.Road.MaxParallel,
		})
	}

	sources := impact.Sources{
		Postcodes: spatial.Guard(ref.Postcodes(), e.Breakers.For("postcodes"), retry),
		BusStops:  spatial.Guard(ref.BusStops(), e.Breakers.For("bus_stops"), retry),
		Roads:     spatial.Guard(roads, e.Breakers.For("road_segments"), retry),
	}
	e.Calculator = impact.New(e.Projects, sources, impact.Settings{
		RadiusMeters:  c.Impact.RadiusMeters,
		WellbeingRate: c.Impact.WellbeingRate,
		Currency:      c.Impact.Currency,
		Version:       c.Impact.Version,
	})

	zap.L().Info("environment ready",
		zap.String("store", c.Store.Driver),
		zap.String("reference", c.Reference.Driver),
		zap.String("road_provider", c.Road.Provider),
	)
	return e, nil
}
