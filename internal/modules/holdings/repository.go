package holdings

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/utils"
)

type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

func (r *Repository) UpsertProgram(program Program) (string, error) {
	if err := program.Validate(); err != nil {
		return "", err
	}
	if program.ID == "" {
		program.ID = uuid.NewString()
	}

	var fallback sql.NullFloat64
	if program.FallbackTotal != nil {
		fallback = sql.NullFloat64{Float64: *program.FallbackTotal, Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO asset_purchases (id, symbol, window_start, window_end, units, fee_bps, basis_method, fallback_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			units = excluded.units,
			fee_bps = excluded.fee_bps,
			basis_method = excluded.basis_method,
			fallback_total = excluded.fallback_total`,
		program.ID, program.Symbol,
		utils.DayUnix(program.WindowStart), utils.DayUnix(program.WindowEnd),
		program.Units, program.FeeBps, program.Basis, fallback)
	if err != nil {
		return "", fmt.Errorf("failed to upsert purchase program: %w", err)
	}

	r.log.Info().
		Str("id", program.ID).
		Str("symbol", program.Symbol).
		Float64("units", program.Units).
		Msg("Saved purchase program")
	return program.ID, nil
}

func (r *Repository) Programs() ([]Program, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, window_start, window_end, units, fee_bps, basis_method, fallback_total
		FROM asset_purchases
		ORDER BY window_start, symbol, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase programs: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var program Program
		var start, end int64
		var fallback sql.NullFloat64
		if err := rows.Scan(&program.ID, &program.Symbol, &start, &end,
			&program.Units, &program.FeeBps, &program.Basis, &fallback); err != nil {
			return nil, fmt.Errorf("failed to scan purchase program: %w", err)
		}
		program.WindowStart = utils.UnixToDay(start)
		program.WindowEnd = utils.UnixToDay(end)
		if fallback.Valid {
			value := fallback.Float64
			program.FallbackTotal = &value
		}
		programs = append(programs, program)
	}
	return programs, rows.Err()
}

func (r *Repository) DeleteProgram(id string) error {
	result, err := r.db.Exec(`DELETE FROM asset_purchases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete purchase program: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted purchase program: %w", err)
	}
	if affected == 0 {
		return ErrProgramNotFound
	}
	return nil
}
