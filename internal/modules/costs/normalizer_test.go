package costs

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/growth"
	"github.com/attikos/foresight/internal/modules/history"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *domain.Calendar {
	t.Helper()
	cal, err := domain.NewCalendar([]domain.FiscalQuarter{
		{Year: 2024, Quarter: 2, EndDate: date(2024, time.August, 3)},
		{Year: 2025, Quarter: 2, EndDate: date(2025, time.August, 2)},
		{Year: 2026, Quarter: 2, EndDate: date(2026, time.August, 1)},
	})
	require.NoError(t, err)
	return cal
}

func quarter(t *testing.T, cal *domain.Calendar, key string) domain.FiscalQuarter {
	t.Helper()
	q, ok := cal.ByKey(key)
	require.True(t, ok)
	return q
}

func usHistory(t *testing.T, cal *domain.Calendar) []domain.QuarterFinancials {
	return []domain.QuarterFinancials{{
		Region:      domain.RegionUS,
		Quarter:     quarter(t, cal, "FY2024Q2"),
		Status:      domain.StatusReported,
		NetSales:    1000,
		CostOfSales: 700,
		SGA:         300,
	}}
}

func projection(t *testing.T, cal *domain.Calendar, key string, netSales float64) growth.Projection {
	q := quarter(t, cal, key)
	return growth.Projection{
		Region:     domain.RegionUS,
		Quarter:    q,
		QuarterKey: key,
		NetSales:   netSales,
	}
}

func newNormalizer() *Normalizer {
	return NewNormalizer(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestNormalizeZeroDeltaKeepsRatio(t *testing.T) {
	cal := testCalendar(t)
	lines, err := newNormalizer().Normalize(Input{
		Calendar:    cal,
		History:     usHistory(t, cal),
		Costs:       assumptions.CostAssumptions{},
		Projections: []growth.Projection{projection(t, cal, "FY2025Q2", 900)},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// A zero delta must reproduce the historical ratio exactly.
	assert.Equal(t, 700.0/1000.0, lines[0].COGSRatio)
	assert.Equal(t, 300.0/1000.0, lines[0].SGARatio)
	assert.InDelta(t, 630.0, lines[0].CostOfSales, 1e-9)
	assert.InDelta(t, 270.0, lines[0].SGA, 1e-9)
}

func TestNormalizeAppliesRatioDeltas(t *testing.T) {
	cal := testCalendar(t)
	lines, err := newNormalizer().Normalize(Input{
		Calendar: cal,
		History:  usHistory(t, cal),
		Costs: assumptions.CostAssumptions{
			COGSRatioDelta: -0.10,
			SGARatioDelta:  0.05,
		},
		Projections: []growth.Projection{projection(t, cal, "FY2025Q2", 900)},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// The delta scales the ratio before the volume multiply.
	assert.InDelta(t, 0.63, lines[0].COGSRatio, 1e-9)
	assert.InDelta(t, 567.0, lines[0].CostOfSales, 1e-9)
	assert.InDelta(t, 0.315, lines[0].SGARatio, 1e-9)
	assert.InDelta(t, 283.5, lines[0].SGA, 1e-9)
}

func TestNormalizeChainsAcrossForecastYears(t *testing.T) {
	cal := testCalendar(t)
	lines, err := newNormalizer().Normalize(Input{
		Calendar: cal,
		History:  usHistory(t, cal),
		Costs:    assumptions.CostAssumptions{COGSRatioDelta: -0.10},
		Projections: []growth.Projection{
			projection(t, cal, "FY2025Q2", 900),
			projection(t, cal, "FY2026Q2", 810),
		},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// FY2026Q2 normalizes against the FY2025Q2 projection, so the ratio
	// delta compounds: 0.7 * 0.9 * 0.9.
	assert.InDelta(t, 0.567, lines[1].COGSRatio, 1e-9)
	assert.InDelta(t, 459.27, lines[1].CostOfSales, 1e-6)
}

func TestNormalizeMissingPriorYearFails(t *testing.T) {
	cal := testCalendar(t)
	_, err := newNormalizer().Normalize(Input{
		Calendar:    cal,
		History:     nil,
		Costs:       assumptions.CostAssumptions{},
		Projections: []growth.Projection{projection(t, cal, "FY2025Q2", 900)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrMissingQuarter)
}

func TestNormalizeZeroSalesBaseFails(t *testing.T) {
	cal := testCalendar(t)
	rows := usHistory(t, cal)
	rows[0].NetSales = 0

	_, err := newNormalizer().Normalize(Input{
		Calendar:    cal,
		History:     rows,
		Costs:       assumptions.CostAssumptions{},
		Projections: []growth.Projection{projection(t, cal, "FY2025Q2", 900)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratios are undefined")
}

func TestImpairmentLookup(t *testing.T) {
	costs := assumptions.CostAssumptions{
		Impairments: map[string]float64{"FY2025Q4": 15.0},
	}
	assert.Equal(t, 15.0, costs.Impairment("FY2025Q4"))
	assert.Equal(t, 0.0, costs.Impairment("FY2025Q3"))
}
