package holdings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/modules/history"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func f64(v float64) *float64 {
	return &v
}

func closeBar(day time.Time, close float64) history.DailyBar {
	return history.DailyBar{Day: day, Close: close}
}

func TestBuildScheduleSpreadsUnitsEvenly(t *testing.T) {
	program := Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 4),
		Units:       400_000,
		FeeBps:      25,
		Basis:       BasisClose,
	}
	bars := []history.DailyBar{
		closeBar(date(2025, time.September, 1), 100),
		closeBar(date(2025, time.September, 2), 101),
		closeBar(date(2025, time.September, 3), 102),
		closeBar(date(2025, time.September, 4), 103),
	}

	schedule, err := BuildSchedule(program, bars)
	require.NoError(t, err)
	require.Len(t, schedule, 4)

	var totalUnits, totalSpend float64
	for i, fill := range schedule {
		assert.True(t, fill.Day.Equal(bars[i].Day))
		assert.InDelta(t, 100_000.0, fill.Units, 1e-9)
		assert.Equal(t, bars[i].Close, fill.Price)
		totalUnits += fill.Units
		totalSpend += fill.Spend
	}
	assert.InDelta(t, 400_000.0, totalUnits, 1e-6)
	// 25bps on top of the raw notional.
	assert.InDelta(t, 100_000.0*(100+101+102+103)*1.0025/1e6, totalSpend, 1e-9)
}

func TestBuildScheduleTypicalPriceBasis(t *testing.T) {
	program := Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 3),
		Units:       300_000,
		Basis:       BasisHLC3,
	}
	bars := []history.DailyBar{
		{Day: date(2025, time.September, 1), High: f64(110), Low: f64(90), Close: 100},
		{Day: date(2025, time.September, 2), High: f64(120), Low: f64(100), Close: 104},
		// Missing high/low degrades to the close.
		closeBar(date(2025, time.September, 3), 99),
	}

	schedule, err := BuildSchedule(program, bars)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	assert.InDelta(t, 100.0, schedule[0].Price, 1e-9)
	assert.InDelta(t, 108.0, schedule[1].Price, 1e-9)
	assert.InDelta(t, 99.0, schedule[2].Price, 1e-9)
}

func TestBuildScheduleFallbackSpreadsAssumedSpend(t *testing.T) {
	program := Program{
		Symbol:        "PRIVATE-CO",
		WindowStart:   date(2025, time.September, 1),
		WindowEnd:     date(2025, time.September, 5),
		Units:         1_000_000,
		Basis:         BasisClose,
		FallbackTotal: f64(25.0),
	}

	schedule, err := BuildSchedule(program, nil)
	require.NoError(t, err)
	require.Len(t, schedule, 5)

	for i, fill := range schedule {
		assert.True(t, fill.Day.Equal(date(2025, time.September, 1+i)))
		assert.InDelta(t, 200_000.0, fill.Units, 1e-9)
		assert.InDelta(t, 5.0, fill.Spend, 1e-12)
		// The implied price keeps units times price consistent with spend.
		assert.InDelta(t, 25.0, fill.Price, 1e-9)
	}
}

func TestBuildScheduleFallbackRequiresTotal(t *testing.T) {
	program := Program{
		Symbol:      "PRIVATE-CO",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 5),
		Units:       1_000_000,
		Basis:       BasisClose,
	}

	_, err := BuildSchedule(program, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrNoPrices)
	assert.Contains(t, err.Error(), "PRIVATE-CO")
}

func TestProgramValidate(t *testing.T) {
	valid := Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 5),
		Units:       100,
		Basis:       BasisClose,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *Program)
	}{
		{"missing symbol", func(p *Program) { p.Symbol = "" }},
		{"missing window", func(p *Program) { p.WindowStart = time.Time{} }},
		{"reversed window", func(p *Program) { p.WindowEnd = date(2025, time.August, 1) }},
		{"zero units", func(p *Program) { p.Units = 0 }},
		{"negative fee", func(p *Program) { p.FeeBps = -1 }},
		{"unknown basis", func(p *Program) { p.Basis = "vwap" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := valid
			tt.mutate(&program)
			assert.Error(t, program.Validate())
		})
	}
}
