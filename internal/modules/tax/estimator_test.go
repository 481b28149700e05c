package tax

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/attikos/foresight/internal/modules/assumptions"
)

func newEstimator() *Estimator {
	return NewEstimator(zerolog.New(nil).Level(zerolog.Disabled))
}

func taxConfig(lookback int) assumptions.TaxAssumptions {
	return assumptions.TaxAssumptions{AnalystRate: 0.21, LookbackQuarters: lookback}
}

func TestEstimateDerivesEffectiveRate(t *testing.T) {
	est := newEstimator().Estimate([]ReferencePeriod{
		{QuarterKey: "FY2025Q1", TaxExpense: 6.0, PretaxBase: 70.3},
	}, taxConfig(1))

	assert.False(t, est.Fallback)
	assert.InDelta(t, 6.0/70.3, est.EffectiveRate, 1e-12)
	assert.Equal(t, 8.5, est.RatePct)
	assert.Equal(t, []string{"FY2025Q1"}, est.Reference)

	// 8.5% on a 100 base lands near 8.5.
	assert.InDelta(t, 8.5, est.Apply(100.0, 0), 0.04)
}

func TestEstimateBlendsLookbackWindow(t *testing.T) {
	periods := []ReferencePeriod{
		{QuarterKey: "FY2024Q3", TaxExpense: 50.0, PretaxBase: 100.0},
		{QuarterKey: "FY2024Q4", TaxExpense: 4.0, PretaxBase: 50.0},
		{QuarterKey: "FY2025Q1", TaxExpense: 6.0, PretaxBase: 50.0},
	}

	est := newEstimator().Estimate(periods, taxConfig(2))

	// Only the trailing two quarters count: (4+6)/(50+50).
	assert.InDelta(t, 0.10, est.EffectiveRate, 1e-12)
	assert.Equal(t, 10.0, est.RatePct)
	assert.Equal(t, []string{"FY2024Q4", "FY2025Q1"}, est.Reference)
}

func TestEstimateFallsBackOnNonPositiveBase(t *testing.T) {
	tests := []struct {
		name    string
		periods []ReferencePeriod
	}{
		{"negative base", []ReferencePeriod{
			{QuarterKey: "FY2025Q1", TaxExpense: 2.0, PretaxBase: -31.5},
		}},
		{"zero base", []ReferencePeriod{
			{QuarterKey: "FY2025Q1", TaxExpense: 2.0, PretaxBase: 0},
		}},
		{"no history", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := newEstimator().Estimate(tt.periods, taxConfig(4))
			assert.True(t, est.Fallback)
			assert.Equal(t, 0.21, est.EffectiveRate)
			assert.Equal(t, 21.0, est.RatePct)
		})
	}
}

func TestApplyAddsOverlayAddon(t *testing.T) {
	est := Estimate{EffectiveRate: 0.10}
	assert.InDelta(t, 11.5, est.Apply(100.0, 1.5), 1e-12)
}

func TestApplyNegativePretaxYieldsBenefit(t *testing.T) {
	est := Estimate{EffectiveRate: 0.10}
	assert.InDelta(t, -5.0, est.Apply(-50.0, 0), 1e-12)
}

func TestQuantizePct(t *testing.T) {
	assert.Equal(t, 8.5, quantizePct(0.08535))
	assert.Equal(t, 8.5, quantizePct(0.0849))
	assert.Equal(t, 8.4, quantizePct(0.0844))
	assert.Equal(t, 0.0, quantizePct(0.0))
}
