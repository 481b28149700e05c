package calibration

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testScorer() *Scorer {
	return NewScorer(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestScoreAveragesAbsolutePercentageErrors(t *testing.T) {
	obs := []Observation{
		{RunID: "run-1", QuarterKey: "FY2025Q3", Forecast: 110, Reported: 100},
		{RunID: "run-1", QuarterKey: "FY2025Q4", Forecast: 90, Reported: 100},
	}

	score := testScorer().Score("net_sales", obs, 5.0)

	assert.Equal(t, "net_sales", score.Scope)
	assert.Equal(t, 2, score.Quarters)
	assert.Equal(t, 0, score.Excluded)
	assert.InDelta(t, 10.0, score.MAPEPct, 1e-9)
	assert.InDelta(t, 10.0, score.WorstAPEPct, 1e-9)

	// sMAPE: 20/210 and 20/190, averaged.
	want := (2*10.0/210.0*100 + 2*10.0/190.0*100) / 2
	assert.InDelta(t, want, score.SMAPEPct, 1e-9)

	assert.True(t, score.Points[0].InMAPE)
	assert.InDelta(t, 10.0, score.Points[0].APEPct, 1e-9)
}

func TestScoreFloorExcludesSmallActuals(t *testing.T) {
	obs := []Observation{
		{RunID: "run-1", QuarterKey: "FY2025Q3", Forecast: 110, Reported: 100},
		{RunID: "run-1", QuarterKey: "FY2025Q4", Forecast: 2, Reported: 1},
	}

	score := testScorer().Score("interest_income", obs, 5.0)

	// The one-million quarter would read as a 100% miss; it only counts
	// toward the symmetric average.
	assert.Equal(t, 2, score.Quarters)
	assert.Equal(t, 1, score.Excluded)
	assert.InDelta(t, 10.0, score.MAPEPct, 1e-9)
	assert.InDelta(t, 10.0, score.WorstAPEPct, 1e-9)
	assert.False(t, score.Points[1].InMAPE)
	assert.InDelta(t, 2.0/3.0*100, score.Points[1].SMAPEPct, 1e-9)
}

func TestScoreZeroFloorUsesDefault(t *testing.T) {
	obs := []Observation{
		{RunID: "run-1", QuarterKey: "FY2025Q3", Forecast: 2, Reported: 1},
	}

	score := testScorer().Score("interest_income", obs, 0)

	assert.Equal(t, 1, score.Excluded)
	assert.Equal(t, 0.0, score.MAPEPct)
}

func TestScorePerfectZeroForecast(t *testing.T) {
	obs := []Observation{
		{RunID: "run-1", QuarterKey: "FY2025Q3", Forecast: 0, Reported: 0},
	}

	score := testScorer().Score("tax_expense", obs, 5.0)

	assert.Equal(t, 0.0, score.SMAPEPct)
	assert.Equal(t, 1, score.Excluded)
}

func TestScoreNegativeActuals(t *testing.T) {
	// Loss quarters score on magnitude.
	obs := []Observation{
		{RunID: "run-1", QuarterKey: "FY2025Q3", Forecast: -90, Reported: -100},
	}

	score := testScorer().Score("net_income", obs, 5.0)

	assert.Equal(t, 0, score.Excluded)
	assert.InDelta(t, 10.0, score.MAPEPct, 1e-9)
	assert.InDelta(t, 2*10.0/190.0*100, score.SMAPEPct, 1e-9)
}

func TestScoreNoObservations(t *testing.T) {
	score := testScorer().Score("net_sales", nil, 5.0)

	assert.Equal(t, 0, score.Quarters)
	assert.Equal(t, 0.0, score.MAPEPct)
	assert.Equal(t, 0.0, score.SMAPEPct)
	assert.Empty(t, score.Points)
}
