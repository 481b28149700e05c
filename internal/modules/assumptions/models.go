// Package assumptions manages versioned analyst assumption sets and the
// region catalog. Sets are imported from YAML, stored immutably in model.db,
// and referenced by id from every forecast run so results stay reproducible.
package assumptions

import (
	"fmt"
	"time"
)

// GrowthAssumptions drive the segment growth projector. The projected YoY
// rate for a region is the growth observed in the anchor quarter plus the
// region's offset, unless an override pins the rate outright.
type GrowthAssumptions struct {
	// AnchorQuarter names the reported quarter whose observed YoY growth
	// seeds the projection. Empty picks the latest reported quarter that
	// has a prior-year base.
	AnchorQuarter string `yaml:"anchor_quarter" json:"anchor_quarter,omitempty"`
	// DefaultOffset is added to the anchor-observed rate, a decimal
	// fraction (0.02 = two percentage points).
	DefaultOffset float64            `yaml:"default_offset" json:"default_offset"`
	Offsets       map[string]float64 `yaml:"offsets" json:"offsets,omitempty"`
	// Overrides pin the projected rate for specific quarters:
	// quarter key -> region code -> rate.
	Overrides map[string]map[string]float64 `yaml:"overrides" json:"overrides,omitempty"`
}

// Offset resolves the percentage-point adjustment for a region.
func (g GrowthAssumptions) Offset(region string) float64 {
	if off, ok := g.Offsets[region]; ok {
		return off
	}
	return g.DefaultOffset
}

// Override reports an analyst-pinned rate for a region and quarter, if any.
func (g GrowthAssumptions) Override(region, quarterKey string) (float64, bool) {
	byRegion, ok := g.Overrides[quarterKey]
	if !ok {
		return 0, false
	}
	rate, ok := byRegion[region]
	return rate, ok
}

// CostAssumptions drive the cost normalizer. Both cost lines are expressed
// as ratios of net sales; the deltas are relative YoY changes applied to the
// prior-year quarter's ratio before multiplying by projected sales.
type CostAssumptions struct {
	COGSRatioDelta float64 `yaml:"cogs_ratio_delta" json:"cogs_ratio_delta"`
	SGARatioDelta  float64 `yaml:"sga_ratio_delta" json:"sga_ratio_delta"`
	// Consolidated quarterly SG&A floor, USD millions. Zero disables it.
	SGAFloor float64 `yaml:"sga_floor" json:"sga_floor"`
	// Planned impairment charges by quarter key, company level.
	Impairments map[string]float64 `yaml:"impairments" json:"impairments,omitempty"`
}

// Impairment returns the planned charge for a quarter, zero when none.
func (c CostAssumptions) Impairment(quarterKey string) float64 {
	return c.Impairments[quarterKey]
}

// OverlayItem is the unit economics of one overlay line: units sold per
// primary unit, retail price in dollars, and gross margin as a fraction of
// price.
type OverlayItem struct {
	AttachRate float64 `yaml:"rate" json:"rate"`
	Price      float64 `yaml:"price" json:"price"`
	Margin     float64 `yaml:"margin" json:"margin"`
}

// RegionDemographics scale a non-primary region's overlay volume:
// population in millions and income per capita indexed to the primary
// region.
type RegionDemographics struct {
	Population  float64 `yaml:"population" json:"population"`
	IncomeIndex float64 `yaml:"income_index" json:"income_index"`
}

// OverlayAssumptions parameterize the product-line overlay. TAM unit
// volumes come from the stored sell-through estimates for Cycle; these
// fields hold the capture and unit economics the analyst controls.
type OverlayAssumptions struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Cycle         string  `yaml:"cycle" json:"cycle,omitempty"`
	PrimaryRegion string  `yaml:"primary_region" json:"primary_region"`
	CaptureRate   float64 `yaml:"capture_rate" json:"capture_rate"`

	Demographics map[string]RegionDemographics `yaml:"demographics" json:"demographics,omitempty"`

	Hardware OverlayItem `yaml:"hardware" json:"hardware"`
	AttachA  OverlayItem `yaml:"attach_a" json:"attach_a"`
	AttachB  OverlayItem `yaml:"attach_b" json:"attach_b"`

	// Overlay SG&A as a fraction of overlay net sales.
	SGARatio float64 `yaml:"sga_ratio" json:"sga_ratio"`
	// Tax add-on in USD millions per quarter with overlay sales.
	TaxAddon float64 `yaml:"tax_addon" json:"tax_addon"`
}

// Weight returns a region's volume scale relative to the primary region,
// population times income per capita. The primary region itself weighs 1.
func (o OverlayAssumptions) Weight(region string) float64 {
	if region == o.PrimaryRegion {
		return 1.0
	}
	primary, ok := o.Demographics[o.PrimaryRegion]
	if !ok || primary.Population <= 0 || primary.IncomeIndex <= 0 {
		return 0
	}
	d, ok := o.Demographics[region]
	if !ok {
		return 0
	}
	return (d.Population * d.IncomeIndex) / (primary.Population * primary.IncomeIndex)
}

// TreasuryAssumptions parameterize the interest model.
type TreasuryAssumptions struct {
	BaseRatePct float64 `yaml:"base_rate_pct" json:"base_rate_pct"`
	DayCount    int     `yaml:"day_count" json:"day_count"`
}

// HoldingsAssumptions parameterize mark-to-market of held assets.
type HoldingsAssumptions struct {
	MarkEnabled bool `yaml:"mark_enabled" json:"mark_enabled"`
	// Analyst-pinned quarter-end prices: symbol -> quarter key -> price.
	// Quarters without a mark or a stored close carry the last known price
	// forward, which makes the incremental gain exactly zero.
	Marks map[string]map[string]float64 `yaml:"marks" json:"marks,omitempty"`
}

// Mark reports a pinned quarter-end price, if any.
func (h HoldingsAssumptions) Mark(symbol, quarterKey string) (float64, bool) {
	byQuarter, ok := h.Marks[symbol]
	if !ok {
		return 0, false
	}
	price, ok := byQuarter[quarterKey]
	return price, ok
}

// TaxAssumptions parameterize the tax estimator.
type TaxAssumptions struct {
	// Fallback effective rate when the historical pre-tax base is zero or
	// negative.
	AnalystRate      float64 `yaml:"analyst_rate" json:"analyst_rate"`
	LookbackQuarters int     `yaml:"lookback_quarters" json:"lookback_quarters"`
}

// ShareAssumptions hold share counts in millions for EPS.
type ShareAssumptions struct {
	Basic   float64 `yaml:"basic" json:"basic"`
	Diluted float64 `yaml:"diluted" json:"diluted"`
}

// Set is one versioned assumption document. ID, Version, Active and
// CreatedAt are assigned by the repository on insert.
type Set struct {
	ID          string    `yaml:"-" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Version     int       `yaml:"-" json:"version"`
	Active      bool      `yaml:"-" json:"active"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`

	HorizonQuarters int                 `yaml:"horizon_quarters" json:"horizon_quarters"`
	Growth          GrowthAssumptions   `yaml:"growth" json:"growth"`
	Costs           CostAssumptions     `yaml:"costs" json:"costs"`
	Overlay         OverlayAssumptions  `yaml:"overlay" json:"overlay"`
	Treasury        TreasuryAssumptions `yaml:"treasury" json:"treasury"`
	Holdings        HoldingsAssumptions `yaml:"holdings" json:"holdings"`
	Tax             TaxAssumptions      `yaml:"tax" json:"tax"`
	Shares          ShareAssumptions    `yaml:"shares" json:"shares"`
	// OtherIncome pins the statement's other income line per quarter.
	// Quarters without an entry default to zero.
	OtherIncome map[string]float64 `yaml:"other_income,omitempty" json:"other_income,omitempty"`
}

// Other returns the other income pinned for a quarter, zero when unset.
func (s *Set) Other(quarterKey string) float64 {
	return s.OtherIncome[quarterKey]
}

// Validate checks the set for values that would make a forecast meaningless.
func (s *Set) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("assumption set requires a name")
	}
	if s.HorizonQuarters < 1 {
		return fmt.Errorf("horizon_quarters must be at least 1, got %d", s.HorizonQuarters)
	}
	if s.Treasury.DayCount <= 0 {
		return fmt.Errorf("treasury day_count must be positive, got %d", s.Treasury.DayCount)
	}
	if s.Tax.AnalystRate < 0 || s.Tax.AnalystRate > 1 {
		return fmt.Errorf("tax analyst_rate must be in [0, 1], got %f", s.Tax.AnalystRate)
	}
	if s.Tax.LookbackQuarters < 1 {
		return fmt.Errorf("tax lookback_quarters must be at least 1, got %d", s.Tax.LookbackQuarters)
	}
	if s.Shares.Basic <= 0 || s.Shares.Diluted <= 0 {
		return fmt.Errorf("share counts must be positive")
	}
	if s.Shares.Diluted < s.Shares.Basic {
		return fmt.Errorf("diluted shares %.1f below basic shares %.1f", s.Shares.Diluted, s.Shares.Basic)
	}
	if s.Overlay.Enabled {
		if err := s.validateOverlay(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) validateOverlay() error {
	o := s.Overlay
	if o.PrimaryRegion == "" {
		return fmt.Errorf("overlay requires a primary_region")
	}
	if o.CaptureRate <= 0 || o.CaptureRate > 1 {
		return fmt.Errorf("overlay capture_rate must be in (0, 1], got %f", o.CaptureRate)
	}
	primary, ok := o.Demographics[o.PrimaryRegion]
	if !ok || primary.Population <= 0 || primary.IncomeIndex <= 0 {
		return fmt.Errorf("overlay demographics missing for primary region %s", o.PrimaryRegion)
	}
	for _, item := range []struct {
		name string
		item OverlayItem
	}{
		{"hardware", o.Hardware},
		{"attach_a", o.AttachA},
		{"attach_b", o.AttachB},
	} {
		if item.item.AttachRate < 0 {
			return fmt.Errorf("overlay %s rate must not be negative", item.name)
		}
		if item.item.Price < 0 {
			return fmt.Errorf("overlay %s price must not be negative", item.name)
		}
		if item.item.Margin < 0 || item.item.Margin > 1 {
			return fmt.Errorf("overlay %s margin must be in [0, 1], got %f", item.name, item.item.Margin)
		}
	}
	if o.SGARatio < 0 || o.SGARatio >= 1 {
		return fmt.Errorf("overlay sga_ratio must be in [0, 1), got %f", o.SGARatio)
	}
	return nil
}
