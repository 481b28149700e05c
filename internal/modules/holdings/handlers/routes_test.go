package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/pkg/embedded"
)

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

	handler := NewHandler(holdings.NewRepository(db, log), log)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	assert.NotPanics(t, func() { setupRouter(t) })
}

func TestProgramRoundTrip(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/holdings/programs/",
		strings.NewReader(`{"symbol":"BTC","window_start":"2025-05-25T00:00:00Z","window_end":"2025-06-10T00:00:00Z","units":4710,"fee_bps":22,"basis":"hlc3"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/holdings/programs/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"BTC"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestProgramRejectsBadBasis(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/holdings/programs/",
		strings.NewReader(`{"symbol":"BTC","window_start":"2025-05-25T00:00:00Z","window_end":"2025-06-10T00:00:00Z","units":4710,"basis":"vwap"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
