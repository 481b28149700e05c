package history

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/attikos/foresight/internal/domain"
)

func setupHistoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fiscal_quarters (
			key TEXT PRIMARY KEY,
			fiscal_year INTEGER NOT NULL,
			fiscal_quarter INTEGER NOT NULL,
			end_date INTEGER NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS regional_financials (
			region TEXT NOT NULL,
			quarter_key TEXT NOT NULL,
			net_sales REAL NOT NULL,
			cost_of_sales REAL NOT NULL,
			sga REAL NOT NULL,
			impairments REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (region, quarter_key)
		);

		CREATE TABLE IF NOT EXISTS consolidated_financials (
			quarter_key TEXT PRIMARY KEY,
			net_sales REAL NOT NULL,
			cost_of_sales REAL NOT NULL,
			sga REAL NOT NULL,
			impairments REAL NOT NULL DEFAULT 0,
			interest_income REAL,
			pretax_income REAL,
			tax_expense REAL,
			net_income REAL,
			basic_shares REAL,
			diluted_shares REAL
		);

		CREATE TABLE IF NOT EXISTS liquidity_anchors (
			quarter_key TEXT PRIMARY KEY,
			cash_and_investments REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reported_interest (
			quarter_key TEXT PRIMARY KEY,
			interest_income REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			day INTEGER NOT NULL,
			open REAL,
			high REAL,
			low REAL,
			close REAL NOT NULL,
			PRIMARY KEY (symbol, day)
		);
	`)
	require.NoError(t, err)

	return db
}

func newTestRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db := setupHistoryDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, log), db
}

func seedQuarters(t *testing.T, repo *Repository) {
	t.Helper()
	quarters := []domain.FiscalQuarter{
		{Year: 2023, Quarter: 3, EndDate: day(2023, time.October, 28)},
		{Year: 2023, Quarter: 4, EndDate: day(2024, time.February, 3)},
		{Year: 2024, Quarter: 1, EndDate: day(2024, time.May, 4)},
		{Year: 2024, Quarter: 2, EndDate: day(2024, time.August, 3)},
	}
	for _, q := range quarters {
		require.NoError(t, repo.UpsertQuarter(q))
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarRoundTrip(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	cal, err := repo.Calendar()
	require.NoError(t, err)

	quarters := cal.Quarters()
	require.Len(t, quarters, 4)
	assert.Equal(t, "FY2023Q3", quarters[0].Key())
	assert.Equal(t, "FY2024Q2", quarters[3].Key())

	q, ok := cal.ByKey("FY2023Q4")
	require.True(t, ok)
	assert.Equal(t, day(2024, time.February, 3), q.EndDate)
}

func TestCalendarEmpty(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	_, err := repo.Calendar()
	assert.ErrorIs(t, err, ErrMissingQuarter)
}

func TestQuarterByKey(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	q, err := repo.QuarterByKey("FY2024Q1")
	require.NoError(t, err)
	assert.Equal(t, 2024, q.Year)
	assert.Equal(t, day(2024, time.May, 4), q.EndDate)

	_, err = repo.QuarterByKey("FY2019Q1")
	assert.ErrorIs(t, err, ErrMissingQuarter)
}

func TestRegionalFinancialsRoundTrip(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	in := domain.QuarterFinancials{
		Region:      domain.RegionUS,
		Quarter:     domain.FiscalQuarter{Year: 2024, Quarter: 1, EndDate: day(2024, time.May, 4)},
		NetSales:    537.5,
		CostOfSales: 380.2,
		SGA:         200.1,
		Impairments: 0,
	}
	require.NoError(t, repo.UpsertRegionalFinancials(in))

	got, err := repo.RegionalFinancials(domain.RegionUS, "FY2024Q1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReported, got.Status)
	assert.InDelta(t, 537.5, got.NetSales, 1e-9)
	assert.Equal(t, "FY2024Q1", got.Quarter.Key())

	// Upsert replaces
	in.NetSales = 540.0
	require.NoError(t, repo.UpsertRegionalFinancials(in))
	got, err = repo.RegionalFinancials(domain.RegionUS, "FY2024Q1")
	require.NoError(t, err)
	assert.InDelta(t, 540.0, got.NetSales, 1e-9)
}

func TestRegionalFinancialsMissing(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	_, err := repo.RegionalFinancials(domain.RegionEU, "FY2024Q1")
	assert.ErrorIs(t, err, ErrMissingQuarter)
}

func TestRegionalHistoryOrdered(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	// Insert out of order; history must come back by end date.
	for _, q := range []domain.FiscalQuarter{
		{Year: 2024, Quarter: 2, EndDate: day(2024, time.August, 3)},
		{Year: 2023, Quarter: 4, EndDate: day(2024, time.February, 3)},
		{Year: 2024, Quarter: 1, EndDate: day(2024, time.May, 4)},
	} {
		require.NoError(t, repo.UpsertRegionalFinancials(domain.QuarterFinancials{
			Region: domain.RegionCA, Quarter: q, NetSales: 100,
		}))
	}

	hist, err := repo.RegionalHistory(domain.RegionCA)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "FY2023Q4", hist[0].Quarter.Key())
	assert.Equal(t, "FY2024Q2", hist[2].Quarter.Key())
}

func TestConsolidatedRoundTrip(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	interest := 14.9
	in := ConsolidatedRow{
		Quarter:        "FY2024Q1",
		NetSales:       881.8,
		CostOfSales:    628.9,
		SGA:            295.1,
		InterestIncome: &interest,
	}
	require.NoError(t, repo.UpsertConsolidated(in))

	got, err := repo.Consolidated("FY2024Q1")
	require.NoError(t, err)
	assert.InDelta(t, 881.8, got.NetSales, 1e-9)
	require.NotNil(t, got.InterestIncome)
	assert.InDelta(t, 14.9, *got.InterestIncome, 1e-9)
	assert.Nil(t, got.TaxExpense)

	_, err = repo.Consolidated("FY2019Q1")
	assert.ErrorIs(t, err, ErrMissingQuarter)
}

func TestLiquidityAnchors(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	require.NoError(t, repo.UpsertLiquidityAnchor("FY2024Q1", 1083.0))
	require.NoError(t, repo.UpsertLiquidityAnchor("FY2024Q2", 4204.2))

	amount, err := repo.LiquidityAnchor("FY2024Q2")
	require.NoError(t, err)
	assert.InDelta(t, 4204.2, amount, 1e-9)

	_, err = repo.LiquidityAnchor("FY2023Q3")
	assert.ErrorIs(t, err, ErrNoLiquidityAnchor)

	anchors, err := repo.LiquidityAnchors()
	require.NoError(t, err)
	assert.Len(t, anchors, 2)
}

func TestReportedInterest(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()
	seedQuarters(t, repo)

	require.NoError(t, repo.UpsertReportedInterest("FY2024Q1", 14.9))
	require.NoError(t, repo.UpsertReportedInterest("FY2024Q2", 39.5))

	reported, err := repo.ReportedInterest()
	require.NoError(t, err)
	assert.InDelta(t, 39.5, reported["FY2024Q2"], 1e-9)
	assert.Len(t, reported, 2)
}

func TestDailyBars(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	high := 105.0
	low := 95.0
	bars := []DailyBar{
		{Day: day(2025, time.May, 5), Close: 100.0, High: &high, Low: &low},
		{Day: day(2025, time.May, 6), Close: 102.0},
		{Day: day(2025, time.May, 7), Close: 101.0},
	}
	require.NoError(t, repo.UpsertDailyBars("BTC-USD", bars))

	got, err := repo.PricesBetween("BTC-USD", day(2025, time.May, 5), day(2025, time.May, 6))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(2025, time.May, 5), got[0].Day)
	require.NotNil(t, got[0].High)
	assert.InDelta(t, 105.0, *got[0].High, 1e-9)
	assert.Nil(t, got[1].High)

	// Range with no rows
	_, err = repo.PricesBetween("BTC-USD", day(2025, time.June, 1), day(2025, time.June, 2))
	assert.ErrorIs(t, err, ErrNoPrices)

	// Last close lookups
	close, err := repo.LastCloseOnOrBefore("BTC-USD", day(2025, time.May, 20))
	require.NoError(t, err)
	assert.InDelta(t, 101.0, close, 1e-9)

	_, err = repo.LastCloseOnOrBefore("BTC-USD", day(2025, time.May, 1))
	assert.ErrorIs(t, err, ErrNoPrices)
}

func TestDailyBarHLC(t *testing.T) {
	high := 110.0
	low := 90.0
	bar := DailyBar{Close: 100.0, High: &high, Low: &low}
	h, l, c := bar.HLC()
	assert.Equal(t, 110.0, h)
	assert.Equal(t, 90.0, l)
	assert.Equal(t, 100.0, c)

	sparse := DailyBar{Close: 100.0}
	h, l, c = sparse.HLC()
	assert.Equal(t, 100.0, h)
	assert.Equal(t, 100.0, l)
	assert.Equal(t, 100.0, c)
}
