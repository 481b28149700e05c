package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/attikos/foresight/internal/modules/forecast"
)

// handleArchiveUpload handles POST /api/archive/upload/{runID}.
// Packages a completed run and uploads it to object storage.
func (s *Server) handleArchiveUpload(w http.ResponseWriter, r *http.Request, runID string) {
	if s.container.Archiver == nil {
		http.Error(w, "Archive storage not configured", http.StatusServiceUnavailable)
		return
	}

	key, err := s.container.Archiver.ArchiveRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, forecast.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "only completed runs") {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.log.Error().Err(err).Str("run_id", runID).Msg("Archive upload failed")
		http.Error(w, "Archive upload failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]string{
			"run_id": runID,
			"key":    key,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleArchiveList handles GET /api/archive/list.
func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	if s.container.Archiver == nil {
		http.Error(w, "Archive storage not configured", http.StatusServiceUnavailable)
		return
	}

	archives, err := s.container.Archiver.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list archives")
		http.Error(w, "Failed to list archives", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": archives,
		"metadata": map[string]interface{}{
			"count":     len(archives),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
