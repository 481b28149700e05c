package holdings

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/attikos/foresight/internal/modules/history"
)

// BuildSchedule spreads a program's units evenly across the days the window
// has prices, at the close or typical-price basis plus the fee uplift. A
// window with no prices at all falls back to spreading the configured total
// spend over the calendar days, when the program provides one.
func BuildSchedule(program Program, bars []history.DailyBar) ([]ExecutionDay, error) {
	if err := program.Validate(); err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return fallbackSchedule(program)
	}

	prices := basisPrices(program.Basis, bars)
	unitsPerDay := program.Units / float64(len(bars))

	schedule := make([]ExecutionDay, len(bars))
	for i, bar := range bars {
		schedule[i] = ExecutionDay{
			Day:   bar.Day,
			Units: unitsPerDay,
			Price: prices[i],
			Spend: spendMillions(unitsPerDay, prices[i], program.FeeBps),
		}
	}
	return schedule, nil
}

// basisPrices resolves the per-day execution price series.
func basisPrices(basis string, bars []history.DailyBar) []float64 {
	if basis == BasisHLC3 {
		high := make([]float64, len(bars))
		low := make([]float64, len(bars))
		closes := make([]float64, len(bars))
		for i, bar := range bars {
			high[i], low[i], closes[i] = bar.HLC()
		}
		return talib.TypPrice(high, low, closes)
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}

// fallbackSchedule spreads the assumed total spend over the window's
// calendar days. The implied price keeps units times price consistent with
// the spend.
func fallbackSchedule(program Program) ([]ExecutionDay, error) {
	if program.FallbackTotal == nil {
		return nil, fmt.Errorf("window %s..%s for %s has no prices and no fallback total: %w",
			program.WindowStart.Format("2006-01-02"), program.WindowEnd.Format("2006-01-02"),
			program.Symbol, history.ErrNoPrices)
	}

	days := int(program.WindowEnd.Sub(program.WindowStart).Hours()/24) + 1
	unitsPerDay := program.Units / float64(days)
	spendPerDay := *program.FallbackTotal / float64(days)

	schedule := make([]ExecutionDay, days)
	for i := 0; i < days; i++ {
		schedule[i] = ExecutionDay{
			Day:   program.WindowStart.AddDate(0, 0, i),
			Units: unitsPerDay,
			Price: spendPerDay / unitsPerDay * unitsPerMillion,
			Spend: spendPerDay,
		}
	}
	return schedule, nil
}

// scheduleFor loads a program's window prices and builds its schedule.
// Missing price data degrades to the fallback instead of failing.
func scheduleFor(program Program, prices PriceSource) ([]ExecutionDay, error) {
	bars, err := prices.PricesBetween(program.Symbol, program.WindowStart, program.WindowEnd)
	if err != nil && !errors.Is(err, history.ErrNoPrices) {
		return nil, fmt.Errorf("failed to load window prices for %s: %w", program.Symbol, err)
	}
	return BuildSchedule(program, bars)
}
