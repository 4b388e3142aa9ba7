package impact

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/spatial"
)

// Kind classifies a calculation failure for the HTTP layer.
type Kind int

const (
	// KindInternal is any failure not otherwise classified.
	KindInternal Kind = iota
	// KindInvalidInput is a malformed project identifier.
	KindInvalidInput
	// KindNotFound is an unknown project.
	KindNotFound
	// KindUpstream is an unreachable or failing reference store.
	KindUpstream
	// KindComputation is a malformed reference record reaching aggregation.
	KindComputation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_failure"
	case KindComputation:
		return "computation_error"
	default:
		return "internal"
	}
}

// Stage is a step of one calculation request.
type Stage int

const (
	StageReceived Stage = iota
	StageProjectResolved
	StageRecordsFetched
	StageAggregated
	StageScoreComputed
	StageResponded
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageProjectResolved:
		return "project_resolved"
	case StageRecordsFetched:
		return "records_fetched"
	case StageAggregated:
		return "aggregated"
	case StageScoreComputed:
		return "score_computed"
	case StageResponded:
		return "responded"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Stage is the last stage that completed
// before the failure; the run itself ends in StageError.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %s: %v", e.Kind, e.Stage, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Nil is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case eris.Is(err, model.ErrInvalidInput):
		return KindInvalidInput
	case eris.Is(err, model.ErrNotFound):
		return KindNotFound
	case eris.Is(err, model.ErrComputation):
		return KindComputation
	}
	if eris.Is(err, spatial.ErrMalformedRecord) {
		return KindComputation
	}
	var up *spatial.UpstreamError
	if errors.As(err, &up) {
		return KindUpstream
	}
	return KindInternal
}

// fail classifies err and records the stage reached.
func fail(stage Stage, kind Kind, err error) *Error {
	if kind == KindInternal {
		kind = classify(err)
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Message is the client-facing text for err. Internal detail of upstream
// and internal failures is not exposed.
func Message(err error, projectID string) string {
	switch KindOf(err) {
	case KindInvalidInput:
		return "Invalid project ID format"
	case KindNotFound:
		return fmt.Sprintf("Project %s not found", projectID)
	case KindUpstream:
		return fmt.Sprintf("Reference data unavailable for project %s", projectID)
	case KindComputation:
		return fmt.Sprintf("Error calculating impact for project %s: malformed reference data", projectID)
	default:
		return "Internal server error"
	}
}
