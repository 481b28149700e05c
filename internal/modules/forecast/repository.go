package forecast

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/modules/statement"
)

// Repository persists runs to the append-only ledger. A run row and its
// statement rows land in one transaction; nothing updates them afterwards.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "forecast").Logger(),
	}
}

func (r *Repository) SaveRun(run *Run) error {
	snapshot, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run snapshot: %w", err)
	}

	var runError sql.NullString
	if run.Error != "" {
		runError = sql.NullString{String: run.Error, Valid: true}
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO forecast_runs (id, created_at, assumption_set_id, horizon, status, error, snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.CreatedAt.Unix(), run.AssumptionSetID,
			run.Horizon, run.Status, runError, snapshot)
		if err != nil {
			return fmt.Errorf("failed to insert forecast run: %w", err)
		}

		for _, s := range run.Statements {
			_, err := tx.Exec(`
				INSERT INTO run_statements (
					run_id, quarter_key, net_sales, cost_of_sales, sga, impairments,
					operating_income, interest_income, other_income, unrealized_gain,
					pretax_income, tax_expense, net_income, basic_eps, normalized_eps
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, s.QuarterKey, s.NetSales, s.CostOfSales, s.SGA, s.Impairments,
				s.OperatingIncome, s.InterestIncome, s.OtherIncome, s.Unrealized,
				s.PretaxIncome, s.TaxExpense, s.NetIncome, s.BasicEPS, s.NormalizedEPS)
			if err != nil {
				return fmt.Errorf("failed to insert run statement %s: %w", s.QuarterKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("id", run.ID).
		Str("status", run.Status).
		Int("statements", len(run.Statements)).
		Int("snapshot_bytes", len(snapshot)).
		Msg("Persisted forecast run")
	return nil
}

// Run loads one run from its snapshot.
func (r *Repository) Run(id string) (*Run, error) {
	var snapshot []byte
	err := r.db.QueryRow(`SELECT snapshot FROM forecast_runs WHERE id = ?`, id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast run %s: %w", id, err)
	}

	var run Run
	if err := msgpack.Unmarshal(snapshot, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot %s: %w", id, err)
	}
	return &run, nil
}

// Runs lists the most recent runs, newest first.
func (r *Repository) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, created_at, assumption_set_id, horizon, status, error
		FROM forecast_runs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var summary RunSummary
		var createdAt int64
		var runError sql.NullString
		if err := rows.Scan(&summary.ID, &createdAt, &summary.AssumptionSetID,
			&summary.Horizon, &summary.Status, &runError); err != nil {
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}
		summary.CreatedAt = time.Unix(createdAt, 0).UTC()
		summary.Error = runError.String
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Statements reads a run's consolidated rows back from the ledger. Regional
// and overlay detail lives only in the snapshot.
func (r *Repository) Statements(runID string) ([]statement.Statement, error) {
	rows, err := r.db.Query(`
		SELECT quarter_key, net_sales, cost_of_sales, sga, impairments,
		       operating_income, interest_income, other_income, unrealized_gain,
		       pretax_income, tax_expense, net_income, basic_eps, normalized_eps
		FROM run_statements
		WHERE run_id = ?
		ORDER BY quarter_key`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run statements for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []statement.Statement
	for rows.Next() {
		var s statement.Statement
		if err := rows.Scan(&s.QuarterKey, &s.NetSales, &s.CostOfSales, &s.SGA,
			&s.Impairments, &s.OperatingIncome, &s.InterestIncome, &s.OtherIncome,
			&s.Unrealized, &s.PretaxIncome, &s.TaxExpense, &s.NetIncome,
			&s.BasicEPS, &s.NormalizedEPS); err != nil {
			return nil, fmt.Errorf("failed to scan run statement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteFailedRunsBefore prunes failed runs older than the cutoff. Completed
// runs are never touched; the ledger keeps them for calibration.
func (r *Repository) DeleteFailedRunsBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			DELETE FROM run_statements WHERE run_id IN (
				SELECT id FROM forecast_runs WHERE status = ? AND created_at < ?)`,
			StatusFailed, cutoff.Unix())
		if err != nil {
			return fmt.Errorf("failed to delete statements of failed runs: %w", err)
		}

		result, err := tx.Exec(`
			DELETE FROM forecast_runs
			WHERE status = ? AND created_at < ?`,
			StatusFailed, cutoff.Unix())
		if err != nil {
			return fmt.Errorf("failed to delete failed runs: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count deleted runs: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Msg("Pruned failed forecast runs")
	}
	return deleted, nil
}

// CompletedRuns lists completed runs oldest first, for calibration sweeps.
func (r *Repository) CompletedRuns() ([]RunSummary, error) {
	rows, err := r.db.Query(`
		SELECT id, created_at, assumption_set_id, horizon, status, error
		FROM forecast_runs
		WHERE status = ?
		ORDER BY created_at, id`, StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var summary RunSummary
		var createdAt int64
		var runError sql.NullString
		if err := rows.Scan(&summary.ID, &createdAt, &summary.AssumptionSetID,
			&summary.Horizon, &summary.Status, &runError); err != nil {
			return nil, fmt.Errorf("failed to scan completed run: %w", err)
		}
		summary.CreatedAt = time.Unix(createdAt, 0).UTC()
		summary.Error = runError.String
		out = append(out, summary)
	}
	return out, rows.Err()
}
