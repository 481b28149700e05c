package overlay

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository stores third-party sell-through estimates in model.db. The
// estimates are the overlay's only external feed: TAM units per quarter for
// a named launch cycle.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "overlay").Logger(),
	}
}

// UpsertVolume inserts or replaces one TAM estimate.
func (r *Repository) UpsertVolume(cycle, quarterKey string, tamUnits float64, source string) error {
	var src interface{}
	if source != "" {
		src = source
	}
	_, err := r.db.Exec(
		`INSERT INTO unit_volumes (cycle, quarter_key, tam_units, source) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cycle, quarter_key) DO UPDATE SET tam_units = excluded.tam_units, source = excluded.source`,
		cycle, quarterKey, tamUnits, src,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert unit volume %s %s: %w", cycle, quarterKey, err)
	}
	return nil
}

// Volumes returns a cycle's TAM estimates keyed by quarter.
func (r *Repository) Volumes(cycle string) (map[string]float64, error) {
	rows, err := r.db.Query(
		`SELECT quarter_key, tam_units FROM unit_volumes WHERE cycle = ?`, cycle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit volumes for %s: %w", cycle, err)
	}
	defer rows.Close()

	volumes := make(map[string]float64)
	for rows.Next() {
		var (
			key   string
			units float64
		)
		if err := rows.Scan(&key, &units); err != nil {
			return nil, fmt.Errorf("failed to scan unit volume: %w", err)
		}
		volumes[key] = units
	}
	return volumes, rows.Err()
}

// Cycles lists the launch cycles with stored estimates.
func (r *Repository) Cycles() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT cycle FROM unit_volumes ORDER BY cycle`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []string
	for rows.Next() {
		var cycle string
		if err := rows.Scan(&cycle); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}
