package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	historyDB   *database.DB
	modelDB     *database.DB
	resultsDB   *database.DB
	cacheDB     *database.DB
	sched       *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	historyDB, modelDB, resultsDB, cacheDB *database.DB,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		historyDB:   historyDB,
		modelDB:     modelDB,
		resultsDB:   resultsDB,
		cacheDB:     cacheDB,
		sched:       sched,
	}
}

// DatabaseHealth reports the health of a single database.
type DatabaseHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// SystemHealthResponse aggregates per-database health.
type SystemHealthResponse struct {
	Status    string           `json:"status"`
	Databases []DatabaseHealth `json:"databases"`
	CheckedAt string           `json:"checked_at"`
}

// SystemInfoResponse describes the running process and host.
type SystemInfoResponse struct {
	Service      string  `json:"service"`
	UptimeHours  float64 `json:"uptime_hours"`
	GoVersion    string  `json:"go_version"`
	NumGoroutine int     `json:"num_goroutine"`
	CPUPercent   float64 `json:"cpu_percent"`
	RAMPercent   float64 `json:"ram_percent"`
	DataDir      string  `json:"data_dir"`
}

// DBStatsEntry reports size and page statistics for one database.
type DBStatsEntry struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	PageSize      int64   `json:"page_size"`
	FreelistCount int64   `json:"freelist_count"`
}

// DatabaseStatsResponse lists statistics for all databases.
type DatabaseStatsResponse struct {
	Databases   []DBStatsEntry `json:"databases"`
	TotalSizeMB float64        `json:"total_size_mb"`
	LastChecked string         `json:"last_checked"`
}

// JobsStatusResponse represents scheduler job status
type JobsStatusResponse struct {
	TotalJobs int                   `json:"total_jobs"`
	Jobs      []scheduler.JobStatus `json:"jobs"`
}

// HandleSystemHealth runs a quick health check on every database
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	var databases []DatabaseHealth
	for _, db := range h.allDatabases() {
		entry := DatabaseHealth{Name: db.Name(), Healthy: true}
		if err := db.QuickCheck(ctx); err != nil {
			entry.Healthy = false
			entry.Error = err.Error()
			status = "unhealthy"
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Database health check failed")
		}
		databases = append(databases, entry)
	}

	response := SystemHealthResponse{
		Status:    status,
		Databases: databases,
		CheckedAt: time.Now().Format(time.RFC3339),
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, response)
}

// HandleSystemInfo returns process and host information
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemInfoResponse{
		Service:      "foresight",
		UptimeHours:  time.Since(h.startupTime).Hours(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		CPUPercent:   cpuPercent,
		RAMPercent:   ramPercent,
		DataDir:      h.dataDir,
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	var entries []DBStatsEntry
	totalSizeMB := 0.0

	for _, db := range h.allDatabases() {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalSizeMB += sizeMB

		entries = append(entries, DBStatsEntry{
			Name:          db.Name(),
			Path:          db.Path(),
			SizeMB:        sizeMB,
			WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:     stats.PageCount,
			PageSize:      stats.PageSize,
			FreelistCount: stats.FreelistCount,
		})
	}

	response := DatabaseStatsResponse{
		Databases:   entries,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobStatus
	if h.sched != nil {
		jobs = h.sched.Jobs()
	}

	response := JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleRunJob triggers a scheduled job by name, outside its schedule
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request, name string) {
	if h.sched == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	if err := h.sched.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	})
}

func (h *SystemHandlers) allDatabases() []*database.DB {
	dbs := make([]*database.DB, 0, 4)
	for _, db := range []*database.DB{h.historyDB, h.modelDB, h.resultsDB, h.cacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// getSystemStats calculates CPU and RAM usage percentages.
// Samples CPU over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
