// Package forecast orchestrates a full model run: it assembles component
// inputs from storage, executes the projection pipeline in dependency order,
// and persists the result as an immutable run.
package forecast

import (
	"time"

	"github.com/attikos/foresight/internal/modules/costs"
	"github.com/attikos/foresight/internal/modules/growth"
	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/internal/modules/overlay"
	"github.com/attikos/foresight/internal/modules/statement"
	"github.com/attikos/foresight/internal/modules/tax"
	"github.com/attikos/foresight/internal/modules/treasury"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one forecast execution. Once persisted it never changes, so runs
// stay comparable as assumptions evolve.
type Run struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	AssumptionSetID   string    `json:"assumption_set_id"`
	AssumptionName    string    `json:"assumption_name"`
	AssumptionVersion int       `json:"assumption_version"`
	Horizon           int       `json:"horizon"`
	Status            string    `json:"status"`
	Error             string    `json:"error,omitempty"`

	Growth     []growth.Projection      `json:"growth,omitempty"`
	Costs      []costs.Line             `json:"costs,omitempty"`
	Overlay    []overlay.Contribution   `json:"overlay,omitempty"`
	Treasury   []treasury.QuarterResult `json:"treasury,omitempty"`
	Holdings   []holdings.SymbolResult  `json:"holdings,omitempty"`
	Tax        tax.Estimate             `json:"tax"`
	Statements []statement.Statement    `json:"statements,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// RunSummary is the listing view of a run, without the snapshot payload.
type RunSummary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	AssumptionSetID string    `json:"assumption_set_id"`
	Horizon         int       `json:"horizon"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
}
