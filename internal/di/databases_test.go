package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	for _, name := range []string{"history.db", "model.db", "results.db", "cache.db"} {
		_, err := os.Stat(filepath.Join(cfg.DataDir, name))
		assert.NoError(t, err, "%s should exist on disk", name)
	}

	// Schemas applied: core tables exist
	var count int
	err = container.HistoryDB.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='fiscal_quarters'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = container.ModelDB.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='assumption_sets'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = container.ResultsDB.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='forecast_runs'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInitializeDatabasesMigrateIdempotent(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	container.Close()

	// Reopening against the same files must not fail on existing schema.
	container, err = InitializeDatabases(cfg, log)
	require.NoError(t, err)
	container.Close()
}
