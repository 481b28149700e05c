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

	"github.com/attikos/foresight/internal/modules/overlay"
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

	handler := NewHandler(overlay.NewRepository(db, log), log)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	assert.NotPanics(t, func() { setupRouter(t) })
}

func TestVolumeRoundTrip(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/overlay/volumes",
		strings.NewReader(`{"cycle":"next-gen-console","quarter":"FY2025Q3","tam_units":2100000,"source":"npd"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/overlay/volumes/next-gen-console", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FY2025Q3":2100000`)

	req = httptest.NewRequest(http.MethodGet, "/overlay/cycles", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "next-gen-console")
}

func TestVolumeRejectsNegativeUnits(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/overlay/volumes",
		strings.NewReader(`{"cycle":"next-gen-console","quarter":"FY2025Q3","tam_units":-5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
