// Package treasury projects interest income by simulating the investable
// liquidity balance day by day: dated funding events, purchase outflows, a
// residual drift that reconciles reported quarters to their filed cash
// anchors, and a rate path built from a base yield plus scheduled changes.
package treasury

import (
	"fmt"
	"time"

	"github.com/attikos/foresight/internal/domain"
)

// Funding event kinds.
const (
	KindATM      = "atm"
	KindConverts = "converts"
	KindOther    = "other"
)

// FundingEvent is a dated capital inflow: a share offering, a convert
// settlement. Amount is gross USD millions; FeeRate nets offerings down on
// the event day.
type FundingEvent struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Amount  float64   `json:"amount"`
	FeeRate float64   `json:"fee_rate"`
	Kind    string    `json:"kind"`
	Note    string    `json:"note,omitempty"`
}

// Net is the amount that actually lands in the balance.
func (e FundingEvent) Net() float64 {
	return e.Amount * (1 - e.FeeRate)
}

// Validate rejects events the simulation cannot interpret.
func (e FundingEvent) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("funding event requires a date")
	}
	if e.FeeRate < 0 || e.FeeRate >= 1 {
		return fmt.Errorf("funding event fee_rate must be in [0, 1), got %f", e.FeeRate)
	}
	switch e.Kind {
	case KindATM, KindConverts, KindOther:
		return nil
	default:
		return fmt.Errorf("funding event kind must be %q, %q or %q, got %q",
			KindATM, KindConverts, KindOther, e.Kind)
	}
}

// RateEvent is one scheduled change in the annual yield: either a delta in
// basis points or an absolute level, never both.
type RateEvent struct {
	ID        string    `json:"id"`
	Effective time.Time `json:"effective"`
	DeltaBps  *float64  `json:"delta_bps,omitempty"`
	ToPct     *float64  `json:"to_pct,omitempty"`
}

// Validate enforces the delta/level exclusivity.
func (e RateEvent) Validate() error {
	if e.Effective.IsZero() {
		return fmt.Errorf("rate event requires an effective date")
	}
	if (e.DeltaBps == nil) == (e.ToPct == nil) {
		return fmt.Errorf("rate event requires exactly one of delta_bps or to_pct")
	}
	return nil
}

// DailyOutflow is one day's cash spent outside operations, typically an
// asset purchase execution.
type DailyOutflow struct {
	Day    time.Time
	Amount float64
}

// QuarterResult is the simulated treasury detail for one quarter.
// EndBalance excludes the quarter's own modeled interest; Carry is what the
// next quarter opens with.
type QuarterResult struct {
	Quarter         domain.FiscalQuarter `json:"-"`
	QuarterKey      string               `json:"quarter"`
	Reported        bool                 `json:"reported"`
	Days            int                  `json:"days"`
	StartBalance    float64              `json:"start_balance"`
	EndBalance      float64              `json:"end_balance"`
	Carry           float64              `json:"carry"`
	AvgBalance      float64              `json:"avg_balance"`
	Interest        float64              `json:"interest"`
	BlendedYieldPct float64              `json:"blended_yield_pct"`
	ImpliedYieldPct float64              `json:"implied_yield_pct"`
	SpreadBps       float64              `json:"spread_bps"`
	DriftPerDay     float64              `json:"drift_per_day"`
	TotalDrift      float64              `json:"total_drift"`
	// Reported quarters only: the drift left after attributing modeled
	// interest, and the filed interest with its implied yield.
	OperatingDrift   *float64 `json:"operating_drift,omitempty"`
	ReportedInterest *float64 `json:"reported_interest,omitempty"`
	ReportedYieldPct *float64 `json:"reported_yield_pct,omitempty"`
}

// SummaryInterest is the one-line arithmetic the simulation refines:
// average balance times blended annual yield times the fraction of a year.
func SummaryInterest(avgBalance, blendedYieldPct, periodFraction float64) float64 {
	return avgBalance * blendedYieldPct / 100 * periodFraction
}
