package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(setupCacheDB(t), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRemovesExpiredEntries(t *testing.T) {
	repo := setupCacheDB(t)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store(NamespaceRateFeed, "stale", cachedQuote{}, -time.Hour))
	require.NoError(t, repo.Store(NamespaceRateFeed, "fresh", cachedQuote{Price: 1}, time.Hour))
	require.NoError(t, repo.UpsertFixings([]Fixing{
		{Day: time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC), RatePct: 4.36, Source: "sofr"},
	}))

	require.NoError(t, job.Run())

	var out cachedQuote
	hit, err := repo.Get(NamespaceRateFeed, "stale", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = repo.Get(NamespaceRateFeed, "fresh", &out)
	require.NoError(t, err)
	assert.True(t, hit)

	// Fixings are inputs, not cache; cleanup never touches them.
	fixings, err := repo.Fixings()
	require.NoError(t, err)
	assert.Len(t, fixings, 1)
}

func TestCleanupJobEmptyCache(t *testing.T) {
	job := NewCleanupJob(setupCacheDB(t), zerolog.Nop())
	require.NoError(t, job.Run())
}
