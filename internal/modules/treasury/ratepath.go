package treasury

import (
	"sort"
	"time"

	"github.com/attikos/foresight/internal/utils"
)

type ratePoint struct {
	day int64
	pct float64
}

// RatePath resolves the annual yield for any day: the base rate, shifted by
// scheduled events from their effective dates (deltas accumulate, absolute
// levels reset), with observed daily fixings taking priority where present.
type RatePath struct {
	basePct float64
	points  []ratePoint
	fixings map[int64]float64
}

func NewRatePath(basePct float64, events []RateEvent, fixings map[int64]float64) *RatePath {
	sorted := make([]RateEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Effective.Before(sorted[j].Effective)
	})

	path := &RatePath{basePct: basePct, fixings: fixings}
	current := basePct
	for _, event := range sorted {
		switch {
		case event.ToPct != nil:
			current = *event.ToPct
		case event.DeltaBps != nil:
			current += *event.DeltaBps / 100
		default:
			continue
		}
		path.points = append(path.points, ratePoint{
			day: utils.DayUnix(event.Effective),
			pct: current,
		})
	}
	return path
}

// RateOn returns the annual yield percent in effect on a day.
func (p *RatePath) RateOn(day time.Time) float64 {
	d := utils.DayUnix(day)
	if pct, ok := p.fixings[d]; ok {
		return pct
	}
	pct := p.basePct
	for _, point := range p.points {
		if point.day > d {
			break
		}
		pct = point.pct
	}
	return pct
}
