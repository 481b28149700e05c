// Package costs projects cost of sales and SG&A for forecast quarters.
// Both lines are normalized as ratios of net sales; a relative YoY delta is
// applied to the prior-year quarter's ratio first, and only then multiplied
// by projected sales. Applying the delta after the volume multiply would
// compound differently once ratios chain across forecast years.
package costs

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/growth"
	"github.com/attikos/foresight/internal/modules/history"
)

// Line is one region × quarter cost projection with the ratios that
// produced it.
type Line struct {
	Region      domain.RegionCode    `json:"region"`
	Quarter     domain.FiscalQuarter `json:"-"`
	QuarterKey  string               `json:"quarter"`
	COGSRatio   float64              `json:"cogs_ratio"`
	SGARatio    float64              `json:"sga_ratio"`
	CostOfSales float64              `json:"cost_of_sales"`
	SGA         float64              `json:"sga"`
}

// Input carries the reported history and the growth stage's output.
type Input struct {
	Calendar *domain.Calendar
	History  []domain.QuarterFinancials
	Costs    assumptions.CostAssumptions
	// Projections from the growth stage, ascending by quarter.
	Projections []growth.Projection
}

type Normalizer struct {
	log zerolog.Logger
}

func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log.With().Str("component", "costs").Logger()}
}

type costBase struct {
	netSales    float64
	costOfSales float64
	sga         float64
}

// Normalize computes cost lines for every projection. Projections are
// processed in order so a second forecast year finds its prior-year ratios
// in the first year's output.
func (n *Normalizer) Normalize(in Input) ([]Line, error) {
	bases := make(map[domain.RegionCode]map[string]costBase)
	for _, row := range in.History {
		byQuarter, ok := bases[row.Region]
		if !ok {
			byQuarter = make(map[string]costBase)
			bases[row.Region] = byQuarter
		}
		byQuarter[row.Quarter.Key()] = costBase{
			netSales:    row.NetSales,
			costOfSales: row.CostOfSales,
			sga:         row.SGA,
		}
	}

	lines := make([]Line, 0, len(in.Projections))
	for _, p := range in.Projections {
		prior, ok := in.Calendar.PriorYear(p.Quarter)
		if !ok {
			return nil, fmt.Errorf("forecast quarter %s has no prior-year quarter in the calendar: %w",
				p.QuarterKey, history.ErrMissingQuarter)
		}
		base, ok := bases[p.Region][prior.Key()]
		if !ok {
			return nil, fmt.Errorf("region %s has no cost history for %s, needed to normalize %s: %w",
				p.Region, prior.Key(), p.QuarterKey, history.ErrMissingQuarter)
		}
		if base.netSales <= 0 {
			return nil, fmt.Errorf("region %s net sales for %s is %.1f, cost ratios are undefined",
				p.Region, prior.Key(), base.netSales)
		}

		cogsRatio := (base.costOfSales / base.netSales) * (1 + in.Costs.COGSRatioDelta)
		sgaRatio := (base.sga / base.netSales) * (1 + in.Costs.SGARatioDelta)

		line := Line{
			Region:      p.Region,
			Quarter:     p.Quarter,
			QuarterKey:  p.QuarterKey,
			COGSRatio:   cogsRatio,
			SGARatio:    sgaRatio,
			CostOfSales: cogsRatio * p.NetSales,
			SGA:         sgaRatio * p.NetSales,
		}
		lines = append(lines, line)

		byQuarter, ok := bases[p.Region]
		if !ok {
			byQuarter = make(map[string]costBase)
			bases[p.Region] = byQuarter
		}
		byQuarter[p.QuarterKey] = costBase{
			netSales:    p.NetSales,
			costOfSales: line.CostOfSales,
			sga:         line.SGA,
		}
	}

	n.log.Debug().Int("lines", len(lines)).Msg("Normalized cost projections")
	return lines, nil
}
