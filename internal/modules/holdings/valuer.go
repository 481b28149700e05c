package holdings

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/history"
)

// PriceSource resolves stored daily prices. history.Repository satisfies it.
type PriceSource interface {
	PricesBetween(symbol string, from, to time.Time) ([]history.DailyBar, error)
	LastCloseOnOrBefore(symbol string, day time.Time) (float64, error)
}

// Input carries the purchase programs and the quarters to value them over.
type Input struct {
	Calendar *domain.Calendar
	// Quarters to mark, ascending. Purchases before the first quarter are
	// folded in as an opening position valued at cost.
	Quarters []domain.FiscalQuarter
	Programs []Program
	Holdings assumptions.HoldingsAssumptions
}

type Valuer struct {
	log zerolog.Logger
}

func NewValuer(log zerolog.Logger) *Valuer {
	return &Valuer{log: log.With().Str("component", "holdings").Logger()}
}

// Value builds every symbol's execution schedule and marks the position at
// each quarter end. Analyst marks take priority over stored closes; a
// quarter with neither carries the previous mark flat, so its incremental
// P&L is exactly zero.
func (v *Valuer) Value(in Input, prices PriceSource) ([]SymbolResult, error) {
	if !in.Holdings.MarkEnabled || len(in.Programs) == 0 || len(in.Quarters) == 0 {
		return nil, nil
	}

	bySymbol := make(map[string][]Program)
	for _, program := range in.Programs {
		bySymbol[program.Symbol] = append(bySymbol[program.Symbol], program)
	}
	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	results := make([]SymbolResult, 0, len(symbols))
	for _, symbol := range symbols {
		result, err := v.valueSymbol(symbol, bySymbol[symbol], in, prices)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (v *Valuer) valueSymbol(symbol string, programs []Program, in Input, prices PriceSource) (SymbolResult, error) {
	var schedule []ExecutionDay
	for _, program := range programs {
		fills, err := scheduleFor(program, prices)
		if err != nil {
			return SymbolResult{}, err
		}
		schedule = append(schedule, fills...)
	}
	sort.Slice(schedule, func(i, j int) bool { return schedule[i].Day.Before(schedule[j].Day) })

	firstStart := in.Calendar.StartDate(in.Quarters[0])
	var units, costBasis float64
	idx := 0
	for idx < len(schedule) && schedule[idx].Day.Before(firstStart) {
		units += schedule[idx].Units
		costBasis += schedule[idx].Spend
		idx++
	}

	// An opening position is valued at cost until the first quarter end
	// re-marks it.
	prevFV := costBasis
	prevPrice := 0.0
	if units > 0 {
		prevPrice = costBasis / units * unitsPerMillion
	}

	quarters := make([]QuarterValue, 0, len(in.Quarters))
	for _, q := range in.Quarters {
		var newCost float64
		for idx < len(schedule) && !schedule[idx].Day.After(q.EndDate) {
			units += schedule[idx].Units
			newCost += schedule[idx].Spend
			idx++
		}
		costBasis += newCost

		price, err := v.resolvePrice(symbol, q, units, costBasis, prevPrice, in.Holdings, prices)
		if err != nil {
			return SymbolResult{}, err
		}

		fairValue := units * price / unitsPerMillion
		value := QuarterValue{
			Quarter:              q,
			QuarterKey:           q.Key(),
			Units:                units,
			CostBasis:            costBasis,
			Price:                price,
			FairValue:            fairValue,
			NewCost:              newCost,
			Unrealized:           fairValue - prevFV - newCost,
			CumulativeUnrealized: fairValue - costBasis,
		}
		quarters = append(quarters, value)
		prevFV = fairValue
		prevPrice = price
	}

	v.log.Debug().
		Str("symbol", symbol).
		Int("fills", len(schedule)).
		Int("quarters", len(quarters)).
		Msg("Marked position to market")
	return SymbolResult{Symbol: symbol, Schedule: schedule, Quarters: quarters}, nil
}

// resolvePrice picks the quarter-end mark: the analyst's pin, then the last
// stored close on or before the quarter end, then the previous mark carried
// flat, and for a never-priced position its own cost.
func (v *Valuer) resolvePrice(symbol string, q domain.FiscalQuarter, units, costBasis, prevPrice float64, cfg assumptions.HoldingsAssumptions, prices PriceSource) (float64, error) {
	if mark, ok := cfg.Mark(symbol, q.Key()); ok {
		return mark, nil
	}
	close, err := prices.LastCloseOnOrBefore(symbol, q.EndDate)
	if err == nil {
		return close, nil
	}
	if !errors.Is(err, history.ErrNoPrices) {
		return 0, fmt.Errorf("failed to resolve %s mark for %s: %w", symbol, q.Key(), err)
	}
	if prevPrice > 0 {
		return prevPrice, nil
	}
	if units > 0 {
		return costBasis / units * unitsPerMillion, nil
	}
	return 0, nil
}
