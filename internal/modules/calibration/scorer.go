// Package calibration scores stored forecast runs against the actuals
// reported after them. Every completed run contributes one observation per
// statement line per quarter that has since been filed; accuracy is absolute
// percentage error averaged two ways. MAPE divides by the reported figure,
// so quarters below a magnitude floor are excluded rather than letting a
// small denominator dominate the average. sMAPE is symmetric and keeps every
// observation.
package calibration

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Scorer struct {
	log zerolog.Logger
}

func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		log: log.With().Str("component", "calibration").Logger(),
	}
}

// Score aggregates observations for one statement line. floor is the
// smallest |reported| that counts toward MAPE; anything at or below zero
// falls back to DefaultMAPEFloor.
func (s *Scorer) Score(scope string, observations []Observation, floor float64) ScopeScore {
	if floor <= 0 {
		floor = DefaultMAPEFloor
	}

	score := ScopeScore{Scope: scope, Quarters: len(observations)}
	var apes, smapes []float64

	for _, obs := range observations {
		point := QuarterScore{
			RunID:      obs.RunID,
			QuarterKey: obs.QuarterKey,
			Forecast:   obs.Forecast,
			Reported:   obs.Reported,
			SMAPEPct:   smapePct(obs.Forecast, obs.Reported),
		}
		smapes = append(smapes, point.SMAPEPct)

		if math.Abs(obs.Reported) >= floor {
			point.APEPct = math.Abs(obs.Forecast-obs.Reported) / math.Abs(obs.Reported) * 100
			point.InMAPE = true
			apes = append(apes, point.APEPct)
		} else {
			score.Excluded++
		}
		score.Points = append(score.Points, point)
	}

	if len(apes) > 0 {
		score.MAPEPct = stat.Mean(apes, nil)
		score.WorstAPEPct = floats.Max(apes)
	}
	if len(smapes) > 0 {
		score.SMAPEPct = stat.Mean(smapes, nil)
	}

	s.log.Debug().
		Str("scope", scope).
		Int("quarters", score.Quarters).
		Int("excluded", score.Excluded).
		Float64("mape_pct", score.MAPEPct).
		Float64("smape_pct", score.SMAPEPct).
		Msg("Scored forecast accuracy")

	return score
}

// smapePct is the symmetric percentage error 2|f-a| / (|f|+|a|). A zero
// denominator means both sides are zero, which is a perfect forecast.
func smapePct(forecast, reported float64) float64 {
	denom := math.Abs(forecast) + math.Abs(reported)
	if denom == 0 {
		return 0
	}
	return 2 * math.Abs(forecast-reported) / denom * 100
}
