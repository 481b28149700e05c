package ratefeed

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/attikos/foresight/internal/clientdata"
	"github.com/attikos/foresight/internal/utils"
)

const feedBody = `{
	"refRates": [
		{"effectiveDate": "2025-08-19", "percentRate": 4.35},
		{"effectiveDate": "2025-08-20", "percentRate": 4.36}
	]
}`

func setupRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE market_data_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE TABLE rate_fixings (
			day      INTEGER PRIMARY KEY,
			rate_pct REAL NOT NULL,
			source   TEXT NOT NULL DEFAULT 'manual'
		);
	`)
	require.NoError(t, err)

	return clientdata.NewRepository(db)
}

func TestSyncStoresFixings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	repo := setupRepo(t)
	client := NewClient(server.URL, repo, zerolog.Nop())

	n, err := client.Sync(2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rates, err := repo.RateFixings()
	require.NoError(t, err)
	require.Len(t, rates, 2)
	day := time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 4.36, rates[utils.DayUnix(day)])
}

func TestSyncUsesCacheOnSecondCall(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	repo := setupRepo(t)
	client := NewClient(server.URL, repo, zerolog.Nop())

	_, err := client.Sync(2)
	require.NoError(t, err)
	_, err = client.Sync(2)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestSyncFallsBackToStaleCache(t *testing.T) {
	repo := setupRepo(t)

	// Expired cache entry from an earlier sync.
	stale := []clientdata.Fixing{
		{Day: time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC), RatePct: 4.30, Source: "sofr"},
	}
	require.NoError(t, repo.Store(clientdata.NamespaceRateFeed, "last-2", stale, -time.Hour))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, repo, zerolog.Nop())

	n, err := client.Sync(2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rates, err := repo.RateFixings()
	require.NoError(t, err)
	day := time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 4.30, rates[utils.DayUnix(day)])
}

func TestSyncFailsWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, setupRepo(t), zerolog.Nop())

	_, err := client.Sync(2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestSyncSkipsMalformedDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"refRates": [
				{"effectiveDate": "not-a-date", "percentRate": 9.99},
				{"effectiveDate": "2025-08-20", "percentRate": 4.36}
			]
		}`))
	}))
	defer server.Close()

	repo := setupRepo(t)
	client := NewClient(server.URL, repo, zerolog.Nop())

	n, err := client.Sync(2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncDefaultsDays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/30.json", r.URL.Path)
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, setupRepo(t), zerolog.Nop())

	_, err := client.Sync(0)
	require.NoError(t, err)
}
