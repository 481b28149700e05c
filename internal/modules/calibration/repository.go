package calibration

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/attikos/foresight/internal/database"
)

// Repository persists backtest scores to results.db. Each sweep appends two
// rows per scope, one per metric, sharing the scope's per-quarter breakdown.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "calibration").Logger(),
	}
}

func (r *Repository) SaveScores(createdAt time.Time, scores []ScopeScore) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, score := range scores {
			details, err := msgpack.Marshal(score.Points)
			if err != nil {
				return fmt.Errorf("failed to encode score details for %s: %w", score.Scope, err)
			}

			included := score.Quarters - score.Excluded
			rows := []struct {
				metric   string
				value    float64
				quarters int
			}{
				{MetricMAPE, score.MAPEPct, included},
				{MetricSMAPE, score.SMAPEPct, score.Quarters},
			}
			for _, row := range rows {
				_, err := tx.Exec(`
					INSERT INTO calibration_results (id, created_at, metric, scope, value, quarters, details)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					uuid.NewString(), createdAt.Unix(), row.metric, score.Scope,
					row.value, row.quarters, details)
				if err != nil {
					return fmt.Errorf("failed to insert %s score for %s: %w", row.metric, score.Scope, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("scopes", len(scores)).Msg("Persisted calibration scores")
	return nil
}

// LatestScores returns the most recent row per metric and scope.
func (r *Repository) LatestScores() ([]StoredScore, error) {
	rows, err := r.db.Query(`
		SELECT id, created_at, metric, scope, value, quarters, details
		FROM calibration_results
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest calibration scores: %w", err)
	}
	defer rows.Close()

	all, err := scanScores(rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []StoredScore
	for _, score := range all {
		key := score.Metric + "|" + score.Scope
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Metric < out[j].Metric
	})
	return out, nil
}

// ScoreHistory returns every stored row for one scope, oldest first.
func (r *Repository) ScoreHistory(scope string, limit int) ([]StoredScore, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, created_at, metric, scope, value, quarters, details
		FROM calibration_results
		WHERE scope = ?
		ORDER BY created_at, metric
		LIMIT ?`, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration history for %s: %w", scope, err)
	}
	defer rows.Close()

	return scanScores(rows)
}

func scanScores(rows *sql.Rows) ([]StoredScore, error) {
	var out []StoredScore
	for rows.Next() {
		var score StoredScore
		var createdAt int64
		var details []byte
		if err := rows.Scan(&score.ID, &createdAt, &score.Metric, &score.Scope,
			&score.Value, &score.Quarters, &details); err != nil {
			return nil, fmt.Errorf("failed to scan calibration score: %w", err)
		}
		score.CreatedAt = time.Unix(createdAt, 0).UTC()
		if len(details) > 0 {
			if err := msgpack.Unmarshal(details, &score.Points); err != nil {
				return nil, fmt.Errorf("failed to decode score details %s: %w", score.ID, err)
			}
		}
		out = append(out, score)
	}
	return out, rows.Err()
}
