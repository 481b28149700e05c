// Package overlay layers a product-launch model on top of the regional
// baseline: third-party TAM unit estimates times a capture rate, with
// per-unit economics for the primary unit and two attach-rate item classes.
// Non-primary regions scale by relative population times income per capita.
// Contributions merge into company totals only; regional base rows never
// include them.
package overlay

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
)

// RegionContribution is the overlay volume and P&L attributed to one region.
type RegionContribution struct {
	Units       float64 `json:"units"`
	NetSales    float64 `json:"net_sales"`
	CostOfSales float64 `json:"cost_of_sales"`
}

// Contribution is the overlay's incremental company-level P&L for one
// quarter.
type Contribution struct {
	Quarter     domain.FiscalQuarter                     `json:"-"`
	QuarterKey  string                                   `json:"quarter"`
	TAMUnits    float64                                  `json:"tam_units"`
	Units       float64                                  `json:"units"`
	Regions     map[domain.RegionCode]RegionContribution `json:"regions"`
	NetSales    float64                                  `json:"net_sales"`
	CostOfSales float64                                  `json:"cost_of_sales"`
	SGA         float64                                  `json:"sga"`
	TaxAddon    float64                                  `json:"tax_addon"`
}

// Input carries the overlay assumptions and the cycle's TAM unit estimates,
// keyed by quarter.
type Input struct {
	Calendar *domain.Calendar
	Regions  []domain.Region
	Overlay  assumptions.OverlayAssumptions
	Volumes  map[string]float64
	Horizon  []domain.FiscalQuarter
}

type Model struct {
	log zerolog.Logger
}

func NewModel(log zerolog.Logger) *Model {
	return &Model{log: log.With().Str("component", "overlay").Logger()}
}

// Compute returns one contribution per horizon quarter that has a TAM
// estimate. Quarters without estimates contribute nothing rather than
// failing: a launch cycle simply may not cover them.
func (m *Model) Compute(in Input) []Contribution {
	if !in.Overlay.Enabled {
		return nil
	}

	perUnitSales, perUnitCOGS := perUnitEconomics(in.Overlay)

	catalog := make(map[domain.RegionCode]domain.Region, len(in.Regions))
	for _, region := range in.Regions {
		catalog[region.Code] = region
	}

	codes := make([]string, 0, len(in.Overlay.Demographics))
	for code := range in.Overlay.Demographics {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var contributions []Contribution
	for _, q := range in.Horizon {
		tam, ok := in.Volumes[q.Key()]
		if !ok || tam <= 0 {
			continue
		}
		primaryUnits := tam * in.Overlay.CaptureRate

		c := Contribution{
			Quarter:    q,
			QuarterKey: q.Key(),
			TAMUnits:   tam,
			Regions:    make(map[domain.RegionCode]RegionContribution),
		}
		for _, code := range codes {
			region, ok := catalog[domain.RegionCode(code)]
			if !ok || !region.ActiveIn(q, in.Calendar) {
				continue
			}
			units := primaryUnits * in.Overlay.Weight(code)
			if units <= 0 {
				continue
			}
			rc := RegionContribution{
				Units:       units,
				NetSales:    units * perUnitSales,
				CostOfSales: units * perUnitCOGS,
			}
			c.Regions[region.Code] = rc
			c.Units += rc.Units
			c.NetSales += rc.NetSales
			c.CostOfSales += rc.CostOfSales
		}
		if c.Units == 0 {
			continue
		}
		c.SGA = c.NetSales * in.Overlay.SGARatio
		c.TaxAddon = in.Overlay.TaxAddon
		contributions = append(contributions, c)
	}

	m.log.Debug().
		Str("cycle", in.Overlay.Cycle).
		Int("quarters", len(contributions)).
		Msg("Computed overlay contributions")
	return contributions
}

// perUnitEconomics folds the three item classes into revenue and cost per
// primary unit sold. The hardware rate is normally 1; attach items sell in
// multiples of it.
func perUnitEconomics(o assumptions.OverlayAssumptions) (sales, cogs float64) {
	for _, item := range []assumptions.OverlayItem{o.Hardware, o.AttachA, o.AttachB} {
		itemSales := item.AttachRate * item.Price
		sales += itemSales
		cogs += itemSales * (1 - item.Margin)
	}
	return sales, cogs
}
