package impact

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/streetworks-impact/internal/model"
)

func TestWellbeingScore_ReferenceValue(t *testing.T) {
	score, err := WellbeingScore(DefaultWellbeingRate, 20, 2477)
	require.NoError(t, err)
	assert.Equal(t, 79759.40, score)
}

func TestWellbeingScore_ZeroDuration(t *testing.T) {
	for _, households := range []int64{0, 1, 2477, 1_000_000} {
		score, err := WellbeingScore(DefaultWellbeingRate, 0, households)
		require.NoError(t, err)
		assert.Zero(t, score, "households=%d", households)
	}
}

func TestWellbeingScore_Monotonic(t *testing.T) {
	prev := -1.0
	for days := 0; days <= 365; days += 5 {
		score, err := WellbeingScore(DefaultWellbeingRate, days, 250)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, prev, "days=%d", days)
		prev = score
	}

	prev = -1.0
	for households := int64(0); households <= 5000; households += 97 {
		score, err := WellbeingScore(DefaultWellbeingRate, 14, households)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, prev, "households=%d", households)
		prev = score
	}
}

func TestWellbeingScore_TwoDecimals(t *testing.T) {
	score, err := WellbeingScore(DefaultWellbeingRate, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 33.81, score)
	assert.Equal(t, score, math.Round(score*100)/100)
}

func TestWellbeingScore_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		days       int
		households int64
	}{
		{"negative duration", DefaultWellbeingRate, -1, 10},
		{"negative households", DefaultWellbeingRate, 1, -10},
		{"negative rate", -1.61, 1, 10},
		{"nan rate", math.NaN(), 1, 10},
		{"overflow", DefaultWellbeingRate, math.MaxInt32, math.MaxInt64 / 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WellbeingScore(tt.rate, tt.days, tt.households)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrComputation))
			assert.Equal(t, KindComputation, KindOf(err))
		})
	}
}
