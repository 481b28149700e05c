package testing

import (
	"time"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/history"
)

// NewQuarterFixtures returns a two-year fiscal calendar ending FY2025Q2,
// with realistic early-month Saturday quarter ends.
func NewQuarterFixtures() []domain.FiscalQuarter {
	return []domain.FiscalQuarter{
		{Year: 2024, Quarter: 1, EndDate: time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC)},
		{Year: 2024, Quarter: 2, EndDate: time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC)},
		{Year: 2024, Quarter: 3, EndDate: time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)},
		{Year: 2024, Quarter: 4, EndDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{Year: 2025, Quarter: 1, EndDate: time.Date(2025, time.May, 3, 0, 0, 0, 0, time.UTC)},
		{Year: 2025, Quarter: 2, EndDate: time.Date(2025, time.August, 2, 0, 0, 0, 0, time.UTC)},
	}
}

// NewRegionFixtures returns the standard regional segment catalog.
func NewRegionFixtures() []domain.Region {
	return []domain.Region{
		{Code: domain.RegionUS, Name: "United States"},
		{Code: domain.RegionCA, Name: "Canada"},
		{Code: domain.RegionAU, Name: "Australia"},
		{Code: domain.RegionEU, Name: "Europe"},
	}
}

// NewRegionalFinancialsFixtures returns reported US-segment line items for
// each quarter in NewQuarterFixtures, with a stable 70% cost of sales and
// 10% SG&A structure so growth and margin math stays easy to verify.
func NewRegionalFinancialsFixtures() []domain.QuarterFinancials {
	sales := map[string]float64{
		"FY2024Q1": 1000,
		"FY2024Q2": 900,
		"FY2024Q3": 700,
		"FY2024Q4": 1200,
		"FY2025Q1": 950,
		"FY2025Q2": 855,
	}

	quarters := NewQuarterFixtures()
	out := make([]domain.QuarterFinancials, 0, len(quarters))
	for _, q := range quarters {
		netSales := sales[q.Key()]
		out = append(out, domain.QuarterFinancials{
			Region:      domain.RegionUS,
			Quarter:     q,
			Status:      domain.StatusReported,
			NetSales:    netSales,
			CostOfSales: netSales * 0.70,
			SGA:         netSales * 0.10,
		})
	}
	return out
}

// NewConsolidatedFixture returns a filed consolidated quarter usable as the
// tax-rate reference: pretax income of 183.0 against 18.3 of tax expense
// gives a clean 10% effective rate.
func NewConsolidatedFixture() history.ConsolidatedRow {
	interest := 12.0
	taxExpense := 18.3
	return history.ConsolidatedRow{
		Quarter:        "FY2025Q2",
		NetSales:       855,
		CostOfSales:    598.5,
		SGA:            85.5,
		InterestIncome: &interest,
		TaxExpense:     &taxExpense,
	}
}

// NewDailyBarFixtures returns n consecutive daily bars starting at start.
// Closes begin at base and rise by step per day, with a 1% high/low band
// around each close for hlc3 valuation tests.
func NewDailyBarFixtures(start time.Time, n int, base, step float64) []history.DailyBar {
	bars := make([]history.DailyBar, 0, n)
	for i := 0; i < n; i++ {
		closePx := base + float64(i)*step
		high := closePx * 1.01
		low := closePx * 0.99
		open := closePx
		bars = append(bars, history.DailyBar{
			Day:   start.AddDate(0, 0, i),
			Open:  &open,
			High:  &high,
			Low:   &low,
			Close: closePx,
		})
	}
	return bars
}

// NewAssumptionSetFixture returns a minimal valid assumption set: one
// forecast quarter, no overlay, no holdings mark, a 5% base yield and the
// standard 21% analyst fallback rate.
func NewAssumptionSetFixture() *assumptions.Set {
	return &assumptions.Set{
		Name:            "fixture",
		HorizonQuarters: 1,
		Overlay:         assumptions.OverlayAssumptions{Enabled: false},
		Treasury:        assumptions.TreasuryAssumptions{BaseRatePct: 5.0, DayCount: 365},
		Holdings:        assumptions.HoldingsAssumptions{MarkEnabled: false},
		Tax:             assumptions.TaxAssumptions{AnalystRate: 0.21, LookbackQuarters: 4},
		Shares:          assumptions.ShareAssumptions{Basic: 400, Diluted: 440},
	}
}
