// Package api serves the impact calculations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/model"
)

// Calculator computes one metric for one project.
type Calculator interface {
	Calculate(ctx context.Context, metric model.Metric, id string) (model.Result, error)
}

// Projects creates and removes project records.
type Projects interface {
	Create(ctx context.Context, in model.ProjectInput) (*model.ProjectReceipt, error)
	Delete(ctx context.Context, id string) (*model.ProjectReceipt, error)
}

// Options configures a Server.
type Options struct {
	Version     string
	CORSOrigins []string
	// RateLimit is requests per RateWindow per client IP. Zero disables
	// limiting.
	RateLimit  int
	RateWindow time.Duration
	// Upstreams reports the circuit state of each reference source.
	Upstreams func() map[string]string
}

// Server routes HTTP requests to the calculator and project store.
type Server struct {
	calc     Calculator
	projects Projects
	opts     Options
	limiter  *clientLimiter
	log      *zap.Logger
}

// New creates a Server.
func New(calc Calculator, projects Projects, opts Options) *Server {
	s := &Server{
		calc:     calc,
		projects: projects,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "api")),
	}
	if opts.RateLimit > 0 && opts.RateWindow > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateWindow)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleDirectory)

	r.Group(func(r chi.Router) {
		r.Use(validateParams)

		for _, rt := range metricRoutes {
			h := s.handleCalculate(rt.metric)
			if rt.metric == "" {
				h = s.handleAssetNetwork
			}
			r.Get(rt.prefix+"/{project_id}", h)
			r.Get(rt.prefix+"/", handleMissingID)
		}

		r.Post("/projects/create", s.handleCreateProject)
		r.Delete("/projects/delete/{project_id}", s.handleDeleteProject)
		r.Delete("/projects/delete/", handleMissingID)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	return r
}

// metricRoutes lists every calculation path prefix. An empty metric is the
// planned asset-network calculation.
var metricRoutes = []struct {
	prefix string
	metric model.Metric
}{
	{"/calculate-wellbeing", model.MetricWellbeing},
	{"/phase-2/metrics/wellbeing", model.MetricWellbeing},
	{"/calculate-bus-network", model.MetricTransport},
	{"/calculate-transport", model.MetricTransport},
	{"/phase-1/metrics/bus-network", model.MetricTransport},
	{"/calculate-road-network", model.MetricRoadNetwork},
	{"/calculate-network", model.MetricRoadNetwork},
	{"/phase-1/metrics/road-network", model.MetricRoadNetwork},
	{"/calculate-asset-network", ""},
	{"/phase-1/metrics/asset-network", ""},
}

func (s *Server) corsOrigins() []string {
	if len(s.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.opts.CORSOrigins
}
