// Package statement assembles the consolidated quarterly view from the
// component outputs. The operating line holds exactly: net sales minus cost
// of sales minus SG&A minus impairments, with no hidden terms. Overlay
// contributions merge at the company level only and never touch the regional
// trend lines.
package statement

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/costs"
	"github.com/attikos/foresight/internal/modules/growth"
	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/internal/modules/overlay"
	"github.com/attikos/foresight/internal/modules/tax"
	"github.com/attikos/foresight/internal/modules/treasury"
)

// RegionLine is one region's contribution to a quarter.
type RegionLine struct {
	Region      domain.RegionCode `json:"region"`
	Rate        float64           `json:"rate"`
	NetSales    float64           `json:"net_sales"`
	CostOfSales float64           `json:"cost_of_sales"`
	SGA         float64           `json:"sga"`
}

// OverlayLine is the company-level overlay merge for a quarter.
type OverlayLine struct {
	Units       float64 `json:"units"`
	NetSales    float64 `json:"net_sales"`
	CostOfSales float64 `json:"cost_of_sales"`
	SGA         float64 `json:"sga"`
	TaxAddon    float64 `json:"tax_addon"`
}

// Statement is one forecast quarter's consolidated result.
type Statement struct {
	Quarter    domain.FiscalQuarter `json:"-"`
	QuarterKey string               `json:"quarter"`

	Regions []RegionLine `json:"regions"`
	Overlay *OverlayLine `json:"overlay,omitempty"`

	NetSales        float64 `json:"net_sales"`
	CostOfSales     float64 `json:"cost_of_sales"`
	SGA             float64 `json:"sga"`
	Impairments     float64 `json:"impairments"`
	OperatingIncome float64 `json:"operating_income"`
	InterestIncome  float64 `json:"interest_income"`
	OtherIncome     float64 `json:"other_income"`
	Unrealized      float64 `json:"unrealized"`
	PretaxIncome    float64 `json:"pretax_income"`
	TaxRatePct      float64 `json:"tax_rate_pct"`
	TaxExpense      float64 `json:"tax_expense"`
	NetIncome       float64 `json:"net_income"`
	BasicEPS        float64 `json:"basic_eps"`
	NormalizedEPS   float64 `json:"normalized_eps"`
}

// Input carries every component's output for the forecast horizon.
type Input struct {
	Quarters []domain.FiscalQuarter
	Growth   []growth.Projection
	Costs    []costs.Line
	Overlay  []overlay.Contribution
	Treasury []treasury.QuarterResult
	Holdings []holdings.SymbolResult
	Tax      tax.Estimate
	// CostTerms supplies the consolidated SG&A floor and planned
	// impairments; Shares the per-share denominators. OtherIncome pins
	// the other income line per quarter, zero when absent.
	CostTerms   assumptions.CostAssumptions
	Shares      assumptions.ShareAssumptions
	OtherIncome map[string]float64
}

type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log.With().Str("component", "statement").Logger()}
}

// Build folds the component outputs into one statement per quarter.
func (b *Builder) Build(in Input) ([]Statement, error) {
	if in.Shares.Basic <= 0 || in.Shares.Diluted <= 0 {
		return nil, fmt.Errorf("share counts must be positive, got basic %f diluted %f",
			in.Shares.Basic, in.Shares.Diluted)
	}

	costLines := make(map[string]costs.Line, len(in.Costs))
	for _, line := range in.Costs {
		costLines[string(line.Region)+"|"+line.QuarterKey] = line
	}
	overlays := make(map[string]overlay.Contribution, len(in.Overlay))
	for _, c := range in.Overlay {
		overlays[c.QuarterKey] = c
	}
	interest := make(map[string]float64, len(in.Treasury))
	for _, q := range in.Treasury {
		interest[q.QuarterKey] = q.Interest
	}
	unrealized := make(map[string]float64)
	for _, symbol := range in.Holdings {
		for _, q := range symbol.Quarters {
			unrealized[q.QuarterKey] += q.Unrealized
		}
	}
	regionsByQuarter := make(map[string][]RegionLine)
	for _, p := range in.Growth {
		line, ok := costLines[string(p.Region)+"|"+p.QuarterKey]
		if !ok {
			return nil, fmt.Errorf("no cost line for %s %s", p.Region, p.QuarterKey)
		}
		regionsByQuarter[p.QuarterKey] = append(regionsByQuarter[p.QuarterKey], RegionLine{
			Region:      p.Region,
			Rate:        p.Rate,
			NetSales:    p.NetSales,
			CostOfSales: line.CostOfSales,
			SGA:         line.SGA,
		})
	}

	statements := make([]Statement, 0, len(in.Quarters))
	for _, q := range in.Quarters {
		key := q.Key()
		regions := regionsByQuarter[key]
		sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })

		s := Statement{
			Quarter:    q,
			QuarterKey: key,
			Regions:    regions,
			TaxRatePct: in.Tax.RatePct,
		}
		for _, r := range regions {
			s.NetSales += r.NetSales
			s.CostOfSales += r.CostOfSales
			s.SGA += r.SGA
		}

		var addon float64
		if c, ok := overlays[key]; ok {
			s.Overlay = &OverlayLine{
				Units:       c.Units,
				NetSales:    c.NetSales,
				CostOfSales: c.CostOfSales,
				SGA:         c.SGA,
				TaxAddon:    c.TaxAddon,
			}
			s.NetSales += c.NetSales
			s.CostOfSales += c.CostOfSales
			s.SGA += c.SGA
			addon = c.TaxAddon
		}

		if floor := in.CostTerms.SGAFloor; floor > 0 && s.SGA < floor {
			s.SGA = floor
		}
		s.Impairments = in.CostTerms.Impairment(key)

		s.OperatingIncome = s.NetSales - s.CostOfSales - s.SGA - s.Impairments
		s.InterestIncome = interest[key]
		s.OtherIncome = in.OtherIncome[key]
		s.Unrealized = unrealized[key]
		s.PretaxIncome = s.OperatingIncome + s.InterestIncome + s.OtherIncome + s.Unrealized
		s.TaxExpense = in.Tax.Apply(s.PretaxIncome, addon)
		s.NetIncome = s.PretaxIncome - s.TaxExpense

		s.BasicEPS = s.NetIncome / in.Shares.Basic
		// Normalized strips impairments and the mark-to-market swing.
		s.NormalizedEPS = (s.NetIncome + s.Impairments - s.Unrealized) / in.Shares.Diluted

		statements = append(statements, s)
	}

	b.log.Debug().
		Int("quarters", len(statements)).
		Msg("Assembled consolidated statements")
	return statements, nil
}
