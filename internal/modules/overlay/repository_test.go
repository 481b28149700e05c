package overlay

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupOverlayDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE unit_volumes (
			cycle       TEXT NOT NULL,
			quarter_key TEXT NOT NULL,
			tam_units   REAL NOT NULL,
			source      TEXT,
			PRIMARY KEY (cycle, quarter_key)
		);
	`)
	require.NoError(t, err)
	return db
}

func TestVolumeRoundTrip(t *testing.T) {
	repo := NewRepository(setupOverlayDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.UpsertVolume("next-gen-console", "FY2025Q3", 2.0, "sell-through panel"))
	require.NoError(t, repo.UpsertVolume("next-gen-console", "FY2025Q4", 3.5, ""))
	require.NoError(t, repo.UpsertVolume("vr-headset", "FY2025Q3", 0.4, ""))

	volumes, err := repo.Volumes("next-gen-console")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"FY2025Q3": 2.0, "FY2025Q4": 3.5}, volumes)

	cycles, err := repo.Cycles()
	require.NoError(t, err)
	assert.Equal(t, []string{"next-gen-console", "vr-headset"}, cycles)
}

func TestUpsertVolumeReplaces(t *testing.T) {
	repo := NewRepository(setupOverlayDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.UpsertVolume("next-gen-console", "FY2025Q3", 2.0, ""))
	require.NoError(t, repo.UpsertVolume("next-gen-console", "FY2025Q3", 2.6, "revised"))

	volumes, err := repo.Volumes("next-gen-console")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"FY2025Q3": 2.6}, volumes)
}

func TestVolumesEmptyCycle(t *testing.T) {
	repo := NewRepository(setupOverlayDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	volumes, err := repo.Volumes("unknown")
	require.NoError(t, err)
	assert.Empty(t, volumes)
}
