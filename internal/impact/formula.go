package impact

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/model"
)

// DefaultWellbeingRate is the disruption cost per household per day in GBP.
const DefaultWellbeingRate = 1.61

// WellbeingScore returns rate × durationDays × households rounded to two
// decimals. The product is formed in integer pence, so the only rounding
// is converting rate to pence once.
func WellbeingScore(rate float64, durationDays int, households int64) (float64, error) {
	if durationDays < 0 {
		return 0, eris.Wrapf(model.ErrComputation, "negative duration %d", durationDays)
	}
	if households < 0 {
		return 0, eris.Wrapf(model.ErrComputation, "negative household count %d", households)
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, eris.Wrapf(model.ErrComputation, "invalid wellbeing rate %v", rate)
	}

	pence := int64(math.Round(rate * 100))
	perDay := pence * households
	if households != 0 && perDay/households != pence {
		return 0, eris.Wrap(model.ErrComputation, "wellbeing score overflows")
	}
	total := perDay * int64(durationDays)
	if durationDays != 0 && total/int64(durationDays) != perDay {
		return 0, eris.Wrap(model.ErrComputation, "wellbeing score overflows")
	}
	return float64(total) / 100, nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
