// Package holdings marks non-operating asset positions to market. Purchase
// programs spread their units across a window at daily execution prices;
// quarterly unrealized P&L is the change in fair value net of new cost.
// Forward quarters without price information carry the last mark flat, which
// makes their incremental P&L exactly zero.
package holdings

import (
	"fmt"
	"time"

	"github.com/attikos/foresight/internal/domain"
)

// Execution price bases.
const (
	BasisClose = "close"
	BasisHLC3  = "hlc3"
)

// Program is one asset accumulation window: total units bought evenly over
// the days the market printed prices, at the chosen price basis plus fees.
type Program struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	// Units are raw asset units, not millions.
	Units  float64 `json:"units"`
	FeeBps float64 `json:"fee_bps"`
	Basis  string  `json:"basis"`
	// FallbackTotal is the assumed total spend in USD millions when the
	// window has no stored prices at all.
	FallbackTotal *float64 `json:"fallback_total,omitempty"`
}

// Validate rejects programs the schedule builder cannot price.
func (p Program) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("purchase program requires a symbol")
	}
	if p.WindowStart.IsZero() || p.WindowEnd.IsZero() {
		return fmt.Errorf("purchase program requires a window")
	}
	if p.WindowEnd.Before(p.WindowStart) {
		return fmt.Errorf("purchase window ends %s before it starts %s",
			p.WindowEnd.Format("2006-01-02"), p.WindowStart.Format("2006-01-02"))
	}
	if p.Units <= 0 {
		return fmt.Errorf("purchase program units must be positive, got %f", p.Units)
	}
	if p.FeeBps < 0 {
		return fmt.Errorf("purchase program fee_bps must not be negative, got %f", p.FeeBps)
	}
	if p.Basis != BasisClose && p.Basis != BasisHLC3 {
		return fmt.Errorf("purchase basis must be %q or %q, got %q", BasisClose, BasisHLC3, p.Basis)
	}
	return nil
}

// ExecutionDay is one day's fill: units bought, the basis price used, and
// the spend in USD millions with fees included.
type ExecutionDay struct {
	Day   time.Time `json:"day"`
	Units float64   `json:"units"`
	Price float64   `json:"price"`
	Spend float64   `json:"spend"`
}

// QuarterValue is one symbol's position at a quarter end.
type QuarterValue struct {
	Quarter    domain.FiscalQuarter `json:"-"`
	QuarterKey string               `json:"quarter"`
	Units      float64              `json:"units"`
	// CostBasis is cumulative, fees included, USD millions.
	CostBasis float64 `json:"cost_basis"`
	// Price is the resolved quarter-end mark in raw asset units.
	Price     float64 `json:"price"`
	FairValue float64 `json:"fair_value"`
	// NewCost is the cost added during this quarter.
	NewCost float64 `json:"new_cost"`
	// Unrealized is the quarter's incremental gain or loss:
	// fair value end minus fair value begin minus new cost.
	Unrealized float64 `json:"unrealized"`
	// CumulativeUnrealized is fair value minus cost basis.
	CumulativeUnrealized float64 `json:"cumulative_unrealized"`
}

// SymbolResult is the full mark-to-market detail for one symbol.
type SymbolResult struct {
	Symbol   string         `json:"symbol"`
	Schedule []ExecutionDay `json:"schedule"`
	Quarters []QuarterValue `json:"quarters"`
}

const unitsPerMillion = 1e6

// spendMillions converts a fill to USD millions with the fee uplift.
func spendMillions(units, price, feeBps float64) float64 {
	return units * price * (1 + feeBps/10000) / unitsPerMillion
}
