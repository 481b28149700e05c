package treasury

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTreasuryDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE funding_events (
			id         TEXT PRIMARY KEY,
			event_date INTEGER NOT NULL,
			amount     REAL NOT NULL,
			fee_rate   REAL NOT NULL DEFAULT 0,
			kind       TEXT NOT NULL,
			note       TEXT
		);
		CREATE TABLE rate_events (
			id             TEXT PRIMARY KEY,
			effective_date INTEGER NOT NULL,
			delta_bps      REAL,
			to_pct         REAL,
			CHECK ((delta_bps IS NULL) != (to_pct IS NULL))
		);
	`)
	require.NoError(t, err)
	return db
}

func newTestRepo(t *testing.T) *Repository {
	return NewRepository(setupTreasuryDB(t), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestFundingEventRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	later := &FundingEvent{
		Date: date(2025, time.June, 17), Amount: 2230.0, Kind: KindConverts,
	}
	earlier := &FundingEvent{
		Date: date(2024, time.May, 24), Amount: 933.4, FeeRate: 0.005,
		Kind: KindATM, Note: "first offering",
	}
	require.NoError(t, repo.UpsertFundingEvent(later))
	require.NoError(t, repo.UpsertFundingEvent(earlier))
	assert.NotEmpty(t, earlier.ID)

	events, err := repo.FundingEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Ordered by date regardless of insert order.
	assert.Equal(t, earlier.ID, events[0].ID)
	assert.True(t, events[0].Date.Equal(date(2024, time.May, 24)))
	assert.Equal(t, 933.4, events[0].Amount)
	assert.Equal(t, "first offering", events[0].Note)
	assert.InDelta(t, 933.4*0.995, events[0].Net(), 1e-9)
	assert.Empty(t, events[1].Note)
}

func TestUpsertFundingEventReplaces(t *testing.T) {
	repo := newTestRepo(t)

	event := &FundingEvent{Date: date(2024, time.May, 24), Amount: 933.4, Kind: KindATM}
	require.NoError(t, repo.UpsertFundingEvent(event))

	event.Amount = 950.0
	require.NoError(t, repo.UpsertFundingEvent(event))

	events, err := repo.FundingEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 950.0, events[0].Amount)
}

func TestDeleteFundingEvent(t *testing.T) {
	repo := newTestRepo(t)

	event := &FundingEvent{Date: date(2024, time.May, 24), Amount: 933.4, Kind: KindATM}
	require.NoError(t, repo.UpsertFundingEvent(event))
	require.NoError(t, repo.DeleteFundingEvent(event.ID))

	events, err := repo.FundingEvents()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpsertFundingEventValidates(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpsertFundingEvent(&FundingEvent{
		Date: date(2024, time.May, 24), Amount: 100, Kind: "dividend",
	})
	assert.ErrorContains(t, err, "kind")

	err = repo.UpsertFundingEvent(&FundingEvent{
		Date: date(2024, time.May, 24), Amount: 100, FeeRate: 1.2, Kind: KindATM,
	})
	assert.ErrorContains(t, err, "fee_rate")
}

func TestRateEventRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	cut := &RateEvent{Effective: date(2025, time.September, 17), DeltaBps: f64(-25)}
	level := &RateEvent{Effective: date(2025, time.December, 10), ToPct: f64(4.0)}
	require.NoError(t, repo.UpsertRateEvent(cut))
	require.NoError(t, repo.UpsertRateEvent(level))

	events, err := repo.RateEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.NotNil(t, events[0].DeltaBps)
	assert.Equal(t, -25.0, *events[0].DeltaBps)
	assert.Nil(t, events[0].ToPct)

	require.NotNil(t, events[1].ToPct)
	assert.Equal(t, 4.0, *events[1].ToPct)
	assert.Nil(t, events[1].DeltaBps)
}

func TestUpsertRateEventValidates(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpsertRateEvent(&RateEvent{Effective: date(2025, time.September, 17)})
	assert.ErrorContains(t, err, "exactly one")

	err = repo.UpsertRateEvent(&RateEvent{
		Effective: date(2025, time.September, 17),
		DeltaBps:  f64(-25),
		ToPct:     f64(4.0),
	})
	assert.ErrorContains(t, err, "exactly one")
}
