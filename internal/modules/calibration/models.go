package calibration

import (
	"time"

	"github.com/attikos/foresight/internal/modules/history"
)

// DefaultMAPEFloor is the smallest reported magnitude, in USD millions, a
// quarter needs to count toward MAPE. Near-zero actuals turn tiny absolute
// misses into huge percentage errors; sMAPE still scores them.
const DefaultMAPEFloor = 5.0

// Observation pairs one run's forecast of a quarter with the figure later
// reported for it.
type Observation struct {
	RunID      string  `json:"run_id"`
	QuarterKey string  `json:"quarter"`
	Forecast   float64 `json:"forecast"`
	Reported   float64 `json:"reported"`
}

// QuarterScore is the per-observation breakdown stored in the details blob.
type QuarterScore struct {
	RunID      string  `json:"run_id"`
	QuarterKey string  `json:"quarter"`
	Forecast   float64 `json:"forecast"`
	Reported   float64 `json:"reported"`
	APEPct     float64 `json:"ape_pct"`
	SMAPEPct   float64 `json:"smape_pct"`
	InMAPE     bool    `json:"in_mape"`
}

// ScopeScore aggregates one statement line's accuracy across every scored
// observation.
type ScopeScore struct {
	Scope       string         `json:"scope"`
	MAPEPct     float64        `json:"mape_pct"`
	SMAPEPct    float64        `json:"smape_pct"`
	WorstAPEPct float64        `json:"worst_ape_pct"`
	Quarters    int            `json:"quarters"`
	Excluded    int            `json:"excluded"`
	Points      []QuarterScore `json:"points,omitempty"`
}

// Result is one backtest sweep: accuracy per scope plus the partition
// reconciliation findings.
type Result struct {
	CreatedAt time.Time                  `json:"created_at"`
	Scores    []ScopeScore               `json:"scores"`
	Warnings  []history.PartitionWarning `json:"warnings,omitempty"`
}

// StoredScore is one persisted calibration_results row.
type StoredScore struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Metric    string         `json:"metric"`
	Scope     string         `json:"scope"`
	Value     float64        `json:"value"`
	Quarters  int            `json:"quarters"`
	Points    []QuarterScore `json:"points,omitempty"`
}

const (
	MetricMAPE  = "mape"
	MetricSMAPE = "smape"
)
