package treasury

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/utils"
)

// Input carries a fully materialized simulation: contiguous quarters,
// the opening balance, reported anchors and interest for calibration,
// and the flow schedules.
type Input struct {
	Calendar *domain.Calendar
	// Quarters to simulate, ascending and contiguous. Reported quarters
	// reconcile to their anchors; the rest forecast with zero drift.
	Quarters     []domain.FiscalQuarter
	StartBalance float64
	// Anchors maps quarter key to filed end-of-quarter cash plus
	// investments. Presence decides reported vs forecast treatment.
	Anchors          map[string]float64
	ReportedInterest map[string]float64
	Treasury         assumptions.TreasuryAssumptions
	RateEvents       []RateEvent
	Funding          []FundingEvent
	Outflows         []DailyOutflow
	// Fixings override the rate path on specific days, unix midnight UTC
	// to annual percent.
	Fixings map[int64]float64
}

type Engine struct {
	log zerolog.Logger
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "treasury").Logger()}
}

// Simulate walks the balance day by day through every quarter. Interest
// accrues on each day's ending balance (ACT over the configured day count)
// and compounds into the next quarter's opening balance for forecast
// quarters. Reported quarters absorb the unexplained residual as a constant
// daily drift so the path lands exactly on the filed anchor.
func (e *Engine) Simulate(in Input) ([]QuarterResult, error) {
	if len(in.Quarters) == 0 {
		return nil, nil
	}
	if in.Treasury.DayCount <= 0 {
		return nil, fmt.Errorf("treasury day count must be positive, got %d", in.Treasury.DayCount)
	}
	for _, event := range in.RateEvents {
		if err := event.Validate(); err != nil {
			return nil, err
		}
	}
	for _, event := range in.Funding {
		if err := event.Validate(); err != nil {
			return nil, err
		}
	}

	path := NewRatePath(in.Treasury.BaseRatePct, in.RateEvents, in.Fixings)
	inflows := make(map[int64]float64, len(in.Funding))
	for _, event := range in.Funding {
		inflows[utils.DayUnix(event.Date)] += event.Net()
	}
	outflows := make(map[int64]float64, len(in.Outflows))
	for _, out := range in.Outflows {
		outflows[utils.DayUnix(out.Day)] += out.Amount
	}

	dayCount := float64(in.Treasury.DayCount)
	balance := in.StartBalance
	results := make([]QuarterResult, 0, len(in.Quarters))

	for i, q := range in.Quarters {
		days := in.Calendar.Days(q)
		if days <= 0 {
			return nil, fmt.Errorf("quarter %s has no days in the calendar", q.Key())
		}
		start := in.Calendar.StartDate(q)
		if i > 0 {
			prevEnd := in.Quarters[i-1].EndDate
			if !start.Equal(prevEnd.AddDate(0, 0, 1)) {
				return nil, fmt.Errorf("quarter %s does not follow %s, the balance carry would be wrong",
					q.Key(), in.Quarters[i-1].Key())
			}
		}

		var netFlow float64
		for d := 0; d < days; d++ {
			dayKey := utils.DayUnix(start.AddDate(0, 0, d))
			netFlow += inflows[dayKey] - outflows[dayKey]
		}

		anchor, reported := in.Anchors[q.Key()]
		drift := 0.0
		if reported {
			drift = (anchor - balance - netFlow) / float64(days)
		}

		result := QuarterResult{
			Quarter:      q,
			QuarterKey:   q.Key(),
			Reported:     reported,
			Days:         days,
			StartBalance: balance,
			DriftPerDay:  drift,
			TotalDrift:   drift * float64(days),
		}

		var sumBalance, sumRate, interest float64
		for d := 0; d < days; d++ {
			day := start.AddDate(0, 0, d)
			dayKey := utils.DayUnix(day)
			balance += inflows[dayKey] - outflows[dayKey] + drift
			rate := path.RateOn(day)
			interest += balance * rate / 100 / dayCount
			sumBalance += balance
			sumRate += rate
		}
		if reported {
			// The drift was solved to land here; pin it to kill float
			// residue before the next quarter opens.
			balance = anchor
		}

		result.EndBalance = balance
		result.AvgBalance = sumBalance / float64(days)
		result.Interest = interest
		result.BlendedYieldPct = sumRate / float64(days)
		if result.AvgBalance > 0 {
			result.ImpliedYieldPct = interest / result.AvgBalance * dayCount / float64(days) * 100
		}
		result.SpreadBps = (result.ImpliedYieldPct - result.BlendedYieldPct) * 100

		if reported {
			operating := result.TotalDrift - interest
			result.OperatingDrift = &operating
			if filed, ok := in.ReportedInterest[q.Key()]; ok {
				filedCopy := filed
				result.ReportedInterest = &filedCopy
				if result.AvgBalance > 0 {
					yield := filed / result.AvgBalance * dayCount / float64(days) * 100
					result.ReportedYieldPct = &yield
				}
			}
			result.Carry = anchor
		} else {
			// Filed anchors already contain the interest they earned;
			// forecast quarters have to add it themselves.
			result.Carry = balance + interest
			balance = result.Carry
		}
		results = append(results, result)
	}

	e.log.Debug().
		Int("quarters", len(results)).
		Float64("end_balance", balance).
		Msg("Simulated liquidity path")
	return results, nil
}
