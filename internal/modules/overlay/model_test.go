package overlay

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *domain.Calendar {
	t.Helper()
	cal, err := domain.NewCalendar([]domain.FiscalQuarter{
		{Year: 2024, Quarter: 2, EndDate: date(2024, time.August, 3)},
		{Year: 2025, Quarter: 3, EndDate: date(2025, time.November, 1)},
		{Year: 2025, Quarter: 4, EndDate: date(2026, time.January, 31)},
	})
	require.NoError(t, err)
	return cal
}

func testOverlay() assumptions.OverlayAssumptions {
	return assumptions.OverlayAssumptions{
		Enabled:       true,
		Cycle:         "next-gen-console",
		PrimaryRegion: "US",
		CaptureRate:   0.05,
		Demographics: map[string]assumptions.RegionDemographics{
			"US": {Population: 335.0, IncomeIndex: 1.00},
			"CA": {Population: 40.0, IncomeIndex: 0.82},
			"EU": {Population: 120.0, IncomeIndex: 0.90},
		},
		Hardware: assumptions.OverlayItem{AttachRate: 1.0, Price: 450.0, Margin: 0.02},
		AttachA:  assumptions.OverlayItem{AttachRate: 1.4, Price: 65.0, Margin: 0.25},
		AttachB:  assumptions.OverlayItem{AttachRate: 0.7, Price: 34.0, Margin: 0.35},
		SGARatio: 0.04,
		TaxAddon: 1.5,
	}
}

func testRegions() []domain.Region {
	return []domain.Region{
		{Code: domain.RegionUS, Name: "United States"},
		{Code: domain.RegionCA, Name: "Canada"},
		{Code: domain.RegionEU, Name: "Europe", DivestedAfter: "FY2024Q2"},
	}
}

func newModel() *Model {
	return NewModel(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestComputeUnitEconomics(t *testing.T) {
	cal := testCalendar(t)
	horizon := cal.Quarters()[1:]

	contributions := newModel().Compute(Input{
		Calendar: cal,
		Regions:  testRegions(),
		Overlay:  testOverlay(),
		Volumes:  map[string]float64{"FY2025Q3": 2.0},
		Horizon:  horizon,
	})
	require.Len(t, contributions, 1)

	c := contributions[0]
	assert.Equal(t, "FY2025Q3", c.QuarterKey)
	assert.Equal(t, 2.0, c.TAMUnits)

	// Per captured unit: 450 hardware + 1.4*65 software + 0.7*34
	// accessories = 564.80 of sales, 524.72 of cost.
	us := c.Regions[domain.RegionUS]
	assert.InDelta(t, 0.1, us.Units, 1e-12)
	assert.InDelta(t, 56.48, us.NetSales, 1e-9)
	assert.InDelta(t, 52.472, us.CostOfSales, 1e-9)

	// Canada scales by population times relative income.
	weight := 40.0 * 0.82 / 335.0
	ca := c.Regions[domain.RegionCA]
	assert.InDelta(t, us.Units*weight, ca.Units, 1e-12)
	assert.InDelta(t, us.NetSales*weight, ca.NetSales, 1e-9)

	assert.InDelta(t, us.NetSales+ca.NetSales, c.NetSales, 1e-9)
	assert.InDelta(t, c.NetSales*0.04, c.SGA, 1e-9)
	assert.Equal(t, 1.5, c.TaxAddon)
}

func TestComputeExcludesDivestedRegion(t *testing.T) {
	cal := testCalendar(t)
	contributions := newModel().Compute(Input{
		Calendar: cal,
		Regions:  testRegions(),
		Overlay:  testOverlay(),
		Volumes:  map[string]float64{"FY2025Q3": 2.0},
		Horizon:  cal.Quarters()[1:],
	})
	require.Len(t, contributions, 1)

	// EU has demographics but was divested before the horizon.
	_, ok := contributions[0].Regions[domain.RegionEU]
	assert.False(t, ok)
}

func TestComputeSkipsQuartersWithoutEstimates(t *testing.T) {
	cal := testCalendar(t)
	contributions := newModel().Compute(Input{
		Calendar: cal,
		Regions:  testRegions(),
		Overlay:  testOverlay(),
		Volumes:  map[string]float64{"FY2025Q3": 2.0},
		Horizon:  cal.Quarters()[1:],
	})

	// FY2025Q4 has no TAM estimate, so no contribution row exists for it.
	require.Len(t, contributions, 1)
	assert.Equal(t, "FY2025Q3", contributions[0].QuarterKey)
}

func TestComputeDisabled(t *testing.T) {
	cal := testCalendar(t)
	overlay := testOverlay()
	overlay.Enabled = false

	contributions := newModel().Compute(Input{
		Calendar: cal,
		Regions:  testRegions(),
		Overlay:  overlay,
		Volumes:  map[string]float64{"FY2025Q3": 2.0},
		Horizon:  cal.Quarters()[1:],
	})
	assert.Nil(t, contributions)
}
