package impact

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/streetworks-impact/internal/model"
	"github.com/sells-group/streetworks-impact/internal/spatial"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"plain", errors.New("boom"), KindInternal},
		{"invalid input", eris.Wrap(model.ErrInvalidInput, "bad id"), KindInvalidInput},
		{"not found", eris.Wrapf(model.ErrNotFound, "project %s", "PROJ_X"), KindNotFound},
		{"computation", eris.Wrap(model.ErrComputation, "nil households"), KindComputation},
		{"malformed record", eris.Wrap(spatial.ErrMalformedRecord, "empty point"), KindComputation},
		{"upstream", &spatial.UpstreamError{Err: errors.New("connection refused")}, KindUpstream},
		{"wrapped upstream", eris.Wrap(&spatial.UpstreamError{Err: errors.New("timeout")}, "lookup"), KindUpstream},
		{"classified", &Error{Kind: KindNotFound, Err: errors.New("x")}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFail_KeepsStage(t *testing.T) {
	err := fail(StageRecordsFetched, KindInternal, eris.Wrap(model.ErrComputation, "x"))
	assert.Equal(t, KindComputation, err.Kind)
	assert.Equal(t, StageRecordsFetched, err.Stage)
	assert.Contains(t, err.Error(), "computation_error after records_fetched")
	assert.True(t, eris.Is(err, model.ErrComputation))
}

func TestMessage(t *testing.T) {
	id := "PROJ_ABC"
	assert.Equal(t, "Invalid project ID format", Message(eris.Wrap(model.ErrInvalidInput, "x"), id))
	assert.Equal(t, "Project PROJ_ABC not found", Message(eris.Wrap(model.ErrNotFound, "x"), id))
	assert.Equal(t, "Reference data unavailable for project PROJ_ABC",
		Message(&spatial.UpstreamError{Err: errors.New("password authentication failed")}, id))
	assert.Equal(t, "Internal server error", Message(errors.New("secret detail"), id))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "received", StageReceived.String())
	assert.Equal(t, "responded", StageResponded.String())
	assert.Equal(t, "error", StageError.String())
	assert.Equal(t, "upstream_failure", KindUpstream.String())
}
