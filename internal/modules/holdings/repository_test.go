package holdings

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupHoldingsDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE asset_purchases (
			id             TEXT PRIMARY KEY,
			symbol         TEXT NOT NULL,
			window_start   INTEGER NOT NULL,
			window_end     INTEGER NOT NULL,
			units          REAL NOT NULL,
			fee_bps        REAL NOT NULL DEFAULT 0,
			basis_method   TEXT NOT NULL DEFAULT 'close',
			fallback_total REAL
		);
	`)
	require.NoError(t, err)
	return db
}

func newTestRepo(t *testing.T) *Repository {
	return NewRepository(setupHoldingsDB(t), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestProgramRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	later := Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 10),
		Units:       1_000_000,
		FeeBps:      25,
		Basis:       BasisHLC3,
	}
	earlier := Program{
		Symbol:        "PRIVATE-CO",
		WindowStart:   date(2025, time.June, 1),
		WindowEnd:     date(2025, time.June, 30),
		Units:         2_000_000,
		Basis:         BasisClose,
		FallbackTotal: f64(50.0),
	}
	laterID, err := repo.UpsertProgram(later)
	require.NoError(t, err)
	require.NotEmpty(t, laterID)
	earlierID, err := repo.UpsertProgram(earlier)
	require.NoError(t, err)

	programs, err := repo.Programs()
	require.NoError(t, err)
	require.Len(t, programs, 2)

	// Ordered by window start.
	assert.Equal(t, earlierID, programs[0].ID)
	assert.Equal(t, laterID, programs[1].ID)

	got := programs[1]
	assert.Equal(t, "BTC-USD", got.Symbol)
	assert.True(t, got.WindowStart.Equal(later.WindowStart))
	assert.True(t, got.WindowEnd.Equal(later.WindowEnd))
	assert.Equal(t, 1_000_000.0, got.Units)
	assert.Equal(t, 25.0, got.FeeBps)
	assert.Equal(t, BasisHLC3, got.Basis)
	assert.Nil(t, got.FallbackTotal)

	require.NotNil(t, programs[0].FallbackTotal)
	assert.Equal(t, 50.0, *programs[0].FallbackTotal)
}

func TestUpsertProgramReplaces(t *testing.T) {
	repo := newTestRepo(t)

	program := Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 10),
		Units:       1_000_000,
		Basis:       BasisClose,
	}
	id, err := repo.UpsertProgram(program)
	require.NoError(t, err)

	program.ID = id
	program.Units = 1_250_000
	program.Basis = BasisHLC3
	_, err = repo.UpsertProgram(program)
	require.NoError(t, err)

	programs, err := repo.Programs()
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, 1_250_000.0, programs[0].Units)
	assert.Equal(t, BasisHLC3, programs[0].Basis)
}

func TestDeleteProgram(t *testing.T) {
	repo := newTestRepo(t)

	id, err := repo.UpsertProgram(Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 10),
		Units:       1_000_000,
		Basis:       BasisClose,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteProgram(id))

	programs, err := repo.Programs()
	require.NoError(t, err)
	assert.Empty(t, programs)

	assert.ErrorIs(t, repo.DeleteProgram(id), ErrProgramNotFound)
}

func TestUpsertProgramValidates(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.UpsertProgram(Program{
		Symbol:      "BTC-USD",
		WindowStart: date(2025, time.September, 1),
		WindowEnd:   date(2025, time.September, 10),
		Units:       1_000_000,
		Basis:       "vwap",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basis")
}
