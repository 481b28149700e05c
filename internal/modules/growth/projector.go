// Package growth projects regional net sales for forecast quarters. The
// projected YoY rate per region is the growth observed in an anchor quarter
// plus an analyst offset; projected sales apply that rate to the same
// quarter one year back. Divested regions are excluded from the output, not
// zeroed.
package growth

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/history"
)

// Projection is one region × quarter net sales projection with the inputs
// that produced it, kept for run diagnostics.
type Projection struct {
	Region         domain.RegionCode    `json:"region"`
	Quarter        domain.FiscalQuarter `json:"-"`
	QuarterKey     string               `json:"quarter"`
	PriorYearSales float64              `json:"prior_year_sales"`
	Rate           float64              `json:"rate"`
	NetSales       float64              `json:"net_sales"`
}

// Input carries everything a projection needs, fully materialized before
// the run starts.
type Input struct {
	Calendar *domain.Calendar
	Regions  []domain.Region
	// History holds reported region × quarter rows.
	History []domain.QuarterFinancials
	Growth  assumptions.GrowthAssumptions
	// Horizon lists the forecast quarters in ascending order.
	Horizon []domain.FiscalQuarter
}

type Projector struct {
	log zerolog.Logger
}

func NewProjector(log zerolog.Logger) *Projector {
	return &Projector{log: log.With().Str("component", "growth").Logger()}
}

// Project computes net sales for every active region across the horizon.
// Quarters are processed in order, so a second forecast year finds its
// prior-year base in the first year's projections.
func (p *Projector) Project(in Input) ([]Projection, error) {
	if len(in.Horizon) == 0 {
		return nil, nil
	}

	sales := salesMatrix(in.History)

	anchor, err := p.resolveAnchor(in)
	if err != nil {
		return nil, err
	}
	anchorPrior, ok := in.Calendar.PriorYear(anchor)
	if !ok {
		return nil, fmt.Errorf("anchor quarter %s has no prior-year quarter in the calendar: %w",
			anchor.Key(), history.ErrMissingQuarter)
	}

	regions := activeRegions(in.Regions, in.Horizon, in.Calendar)

	observed := make(map[domain.RegionCode]float64, len(regions))
	for _, region := range regions {
		rate, err := observedGrowth(sales, region.Code, anchor, anchorPrior)
		if err != nil {
			return nil, err
		}
		observed[region.Code] = rate
	}

	var projections []Projection
	for _, q := range in.Horizon {
		prior, ok := in.Calendar.PriorYear(q)
		if !ok {
			return nil, fmt.Errorf("forecast quarter %s has no prior-year quarter in the calendar: %w",
				q.Key(), history.ErrMissingQuarter)
		}
		for _, region := range regions {
			if !region.ActiveIn(q, in.Calendar) {
				continue
			}
			base, ok := sales[region.Code][prior.Key()]
			if !ok {
				return nil, fmt.Errorf("region %s has no net sales for %s, needed to project %s: %w",
					region.Code, prior.Key(), q.Key(), history.ErrMissingQuarter)
			}

			rate, pinned := in.Growth.Override(string(region.Code), q.Key())
			if !pinned {
				rate = observed[region.Code] + in.Growth.Offset(string(region.Code))
			}

			projected := base * (1 + rate)
			projections = append(projections, Projection{
				Region:         region.Code,
				Quarter:        q,
				QuarterKey:     q.Key(),
				PriorYearSales: base,
				Rate:           rate,
				NetSales:       projected,
			})
			if _, ok := sales[region.Code]; !ok {
				sales[region.Code] = make(map[string]float64)
			}
			sales[region.Code][q.Key()] = projected
		}
	}

	p.log.Debug().
		Str("anchor", anchor.Key()).
		Int("quarters", len(in.Horizon)).
		Int("projections", len(projections)).
		Msg("Projected regional net sales")
	return projections, nil
}

// resolveAnchor picks the configured anchor quarter, or the latest reported
// quarter that has a prior-year quarter to compare against.
func (p *Projector) resolveAnchor(in Input) (domain.FiscalQuarter, error) {
	if key := in.Growth.AnchorQuarter; key != "" {
		q, ok := in.Calendar.ByKey(key)
		if !ok {
			return domain.FiscalQuarter{}, fmt.Errorf("anchor quarter %s is not in the calendar: %w",
				key, history.ErrMissingQuarter)
		}
		return q, nil
	}

	var latest domain.FiscalQuarter
	for _, row := range in.History {
		if row.Status != domain.StatusReported {
			continue
		}
		if _, ok := in.Calendar.PriorYear(row.Quarter); !ok {
			continue
		}
		if latest.IsZero() || row.Quarter.After(latest) {
			latest = row.Quarter
		}
	}
	if latest.IsZero() {
		return domain.FiscalQuarter{}, fmt.Errorf("no reported quarter with a prior-year base to anchor growth on: %w",
			history.ErrMissingQuarter)
	}
	return latest, nil
}

// observedGrowth computes the YoY rate a region showed in the anchor
// quarter. A missing or non-positive prior-year base is a hard failure:
// defaulting it to zero would silently assert an economic claim.
func observedGrowth(sales map[domain.RegionCode]map[string]float64, region domain.RegionCode, anchor, prior domain.FiscalQuarter) (float64, error) {
	current, ok := sales[region][anchor.Key()]
	if !ok {
		return 0, fmt.Errorf("region %s has no net sales for anchor quarter %s: %w",
			region, anchor.Key(), history.ErrMissingQuarter)
	}
	base, ok := sales[region][prior.Key()]
	if !ok {
		return 0, fmt.Errorf("region %s has no net sales for %s, the anchor's prior year: %w",
			region, prior.Key(), history.ErrMissingQuarter)
	}
	if base <= 0 {
		return 0, fmt.Errorf("region %s prior-year net sales for %s is %.1f, growth is undefined",
			region, prior.Key(), base)
	}
	return current/base - 1, nil
}

// activeRegions filters the catalog to regions active in at least one
// horizon quarter, sorted by code for deterministic output.
func activeRegions(regions []domain.Region, horizon []domain.FiscalQuarter, cal *domain.Calendar) []domain.Region {
	var active []domain.Region
	for _, region := range regions {
		for _, q := range horizon {
			if region.ActiveIn(q, cal) {
				active = append(active, region)
				break
			}
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Code < active[j].Code })
	return active
}

func salesMatrix(rows []domain.QuarterFinancials) map[domain.RegionCode]map[string]float64 {
	sales := make(map[domain.RegionCode]map[string]float64)
	for _, row := range rows {
		byQuarter, ok := sales[row.Region]
		if !ok {
			byQuarter = make(map[string]float64)
			sales[row.Region] = byQuarter
		}
		byQuarter[row.Quarter.Key()] = row.NetSales
	}
	return sales
}
