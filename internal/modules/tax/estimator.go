// Package tax projects income tax expense from the filed effective rate.
// The rate is tax expense over the pre-tax base (operating income excluding
// impairments, plus interest income) blended across a lookback window of
// reported quarters. An unusable base falls back to the analyst default.
package tax

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/assumptions"
)

// ReferencePeriod is one reported quarter's tax inputs.
type ReferencePeriod struct {
	QuarterKey string  `json:"quarter"`
	TaxExpense float64 `json:"tax_expense"`
	PretaxBase float64 `json:"pretax_base"`
}

// Estimate is a resolved effective rate ready to apply to forecast quarters.
type Estimate struct {
	// EffectiveRate is the raw decimal rate used for projection.
	EffectiveRate float64 `json:"effective_rate"`
	// RatePct is the rate quantized to a tenth of a percent for reporting.
	RatePct float64 `json:"rate_pct"`
	// Fallback is set when the historical base was zero or negative and
	// the analyst default rate took over.
	Fallback bool `json:"fallback"`
	// Reference lists the quarters folded into the rate.
	Reference []string `json:"reference,omitempty"`
}

type Estimator struct {
	log zerolog.Logger
}

func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{log: log.With().Str("component", "tax").Logger()}
}

// Estimate blends the effective rate over the most recent lookback quarters.
// Periods must be ascending; only the trailing window counts. A cumulative
// base at or below zero cannot produce a rate, so the analyst default
// applies instead of a division by zero.
func (e *Estimator) Estimate(periods []ReferencePeriod, cfg assumptions.TaxAssumptions) Estimate {
	lookback := cfg.LookbackQuarters
	if lookback < 1 {
		lookback = 1
	}
	if len(periods) > lookback {
		periods = periods[len(periods)-lookback:]
	}

	var tax, base float64
	keys := make([]string, 0, len(periods))
	for _, p := range periods {
		tax += p.TaxExpense
		base += p.PretaxBase
		keys = append(keys, p.QuarterKey)
	}

	if base <= 0 {
		e.log.Warn().
			Float64("pretax_base", base).
			Float64("analyst_rate", cfg.AnalystRate).
			Int("reference_quarters", len(keys)).
			Msg("Pre-tax base unusable, falling back to analyst rate")
		return Estimate{
			EffectiveRate: cfg.AnalystRate,
			RatePct:       quantizePct(cfg.AnalystRate),
			Fallback:      true,
			Reference:     keys,
		}
	}

	rate := tax / base
	e.log.Debug().
		Float64("rate", rate).
		Strs("reference", keys).
		Msg("Derived effective tax rate")
	return Estimate{
		EffectiveRate: rate,
		RatePct:       quantizePct(rate),
		Reference:     keys,
	}
}

// Apply projects the tax expense on a forecast pre-tax income. The overlay
// add-on lands after the rate, not inside the base.
func (est Estimate) Apply(pretaxIncome, addon float64) float64 {
	return est.EffectiveRate*pretaxIncome + addon
}

func quantizePct(rate float64) float64 {
	return math.Round(rate*1000) / 10
}
