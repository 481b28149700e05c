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

	"github.com/attikos/foresight/internal/modules/treasury"
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

	handler := NewHandler(treasury.NewRepository(db, log), log)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	assert.NotPanics(t, func() { setupRouter(t) })
}

func TestRateEventRoundTrip(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/treasury/rate-events/",
		strings.NewReader(`{"effective":"2025-09-18T00:00:00Z","delta_bps":-25}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/treasury/rate-events/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"delta_bps":-25`)
}

func TestRateEventRejectsBothFields(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/treasury/rate-events/",
		strings.NewReader(`{"effective":"2025-09-18T00:00:00Z","delta_bps":-25,"to_pct":3.75}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFundingEventRoundTrip(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/treasury/funding-events/",
		strings.NewReader(`{"date":"2025-06-12T00:00:00Z","amount":450.0,"fee_rate":0.0125,"kind":"atm"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/treasury/funding-events/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"atm"`)
}

func TestFundingEventRejectsUnknownKind(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/treasury/funding-events/",
		strings.NewReader(`{"date":"2025-06-12T00:00:00Z","amount":450.0,"kind":"ipo"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
