package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/impact"
	"github.com/sells-group/streetworks-impact/internal/model"
)

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(k impact.Kind) int {
	switch k {
	case impact.KindInvalidInput:
		return http.StatusBadRequest
	case impact.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeFailure(w http.ResponseWriter, status int, msg, projectID string) {
	writeJSON(w, status, model.ErrorResponse{Success: false, Error: msg, ProjectID: projectID})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "healthy",
		"message": "Streetworks impact API is running",
		"version": s.opts.Version,
	}
	if s.opts.Upstreams != nil {
		states := s.opts.Upstreams()
		for _, st := range states {
			if st != "closed" {
				resp["status"] = "degraded"
			}
		}
		resp["upstreams"] = states
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDirectory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Streetworks Impact API",
		"version": s.opts.Version,
		"endpoints": map[string]string{
			"health":                 "/health",
			"calculate_wellbeing":    "/calculate-wellbeing/{project_id}",
			"calculate_bus_network":  "/calculate-bus-network/{project_id}",
			"calculate_road_network": "/calculate-road-network/{project_id}",
			"calculate_asset":        "/calculate-asset-network/{project_id}",
			"create_project":         "POST /projects/create",
			"delete_project":         "DELETE /projects/delete/{project_id}",
		},
	})
}

func (s *Server) handleCalculate(metric model.Metric) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "project_id")
		res, err := s.calc.Calculate(r.Context(), metric, id)
		if err != nil {
			writeFailure(w, StatusFor(impact.KindOf(err)), impact.Message(err, id), id)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleMissingID(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusBadRequest, "Invalid project ID format", "")
}

func (s *Server) handleAssetNetwork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "project_id")
	writeFailure(w, http.StatusNotImplemented, "Asset network impact calculation is not yet available", id)
}

// createRequest accepts dates as YYYY-MM-DD strings.
type createRequest struct {
	model.ProjectInput
	StartDate      string `json:"start_date,omitempty"`
	CompletionDate string `json:"completion_date,omitempty"`
}

func (c createRequest) input() (model.ProjectInput, error) {
	in := c.ProjectInput
	var err error
	if in.StartDate, err = parseDate("start_date", c.StartDate); err != nil {
		return in, err
	}
	if in.CompletionDate, err = parseDate("completion_date", c.CompletionDate); err != nil {
		return in, err
	}
	return in, nil
}

func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, eris.Wrapf(model.ErrInvalidInput, "%s must be YYYY-MM-DD, got %q", field, v)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	in, err := req.input()
	if err != nil {
		writeFailure(w, http.StatusBadRequest, validationMessage(err), "")
		return
	}

	receipt, err := s.projects.Create(r.Context(), in)
	if err != nil {
		s.projectFailure(w, err, "", "create")
		return
	}
	s.log.Info("project created", zap.String("project_id", receipt.ProjectID))
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "project_id")
	receipt, err := s.projects.Delete(r.Context(), id)
	if err != nil {
		s.projectFailure(w, err, id, "delete")
		return
	}
	s.log.Info("project deleted", zap.String("project_id", id))
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) projectFailure(w http.ResponseWriter, err error, id, op string) {
	kind := impact.KindOf(err)
	switch kind {
	case impact.KindInvalidInput:
		writeFailure(w, http.StatusBadRequest, validationMessage(err), id)
	case impact.KindNotFound:
		writeFailure(w, http.StatusNotFound, impact.Message(err, id), id)
	default:
		s.log.Error("project "+op+" failed", zap.String("project_id", id), zap.Error(err))
		writeFailure(w, StatusFor(kind), "Internal server error", id)
	}
}

// validationMessage returns the context of a validation error, which
// names the offending field.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "+model.ErrInvalidInput.Error()); i > 0 {
		return msg[:i]
	}
	return msg
}
