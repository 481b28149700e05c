package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/pkg/embedded"
)

const minimalDocument = `
name: test-set
horizon_quarters: 2
treasury:
  base_rate_pct: 4.25
  day_count: 365
tax:
  analyst_rate: 0.21
  lookback_quarters: 1
shares:
  basic: 400.0
  diluted: 440.0
`

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	content, err := embedded.Files.ReadFile("schemas/model_schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(content))
	require.NoError(t, err)

	repo := assumptions.NewRepository(db, log)
	manager := events.NewManager(events.NewBus(log), log)

	handler := NewHandler(repo, manager, log)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	assert.NotPanics(t, func() { setupRouter(t) })
}

func TestImportActivateAndFetch(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/assumptions/import?activate=true",
		strings.NewReader(minimalDocument))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data assumptions.Set `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "test-set", created.Data.Name)
	assert.Equal(t, 1, created.Data.Version)
	assert.True(t, created.Data.Active)

	req = httptest.NewRequest(http.MethodGet, "/assumptions/sets/"+created.Data.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"test-set"`)
}

func TestImportBumpsVersion(t *testing.T) {
	router := setupRouter(t)

	for want := 1; want <= 2; want++ {
		req := httptest.NewRequest(http.MethodPost, "/assumptions/import",
			strings.NewReader(minimalDocument))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created struct {
			Data assumptions.Set `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, want, created.Data.Version)
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/assumptions/import",
		strings.NewReader("name: broken\nhorizon_quarters: 0\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPayloadReturnsOriginalYAML(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/assumptions/import",
		strings.NewReader(minimalDocument))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data assumptions.Set `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodGet, "/assumptions/sets/"+created.Data.ID+"/payload", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, minimalDocument, rec.Body.String())
}

func TestActivateUnknownSet(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/assumptions/sets/missing/activate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
