package assumptions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/domain"
)

// Repository persists assumption sets and the region catalog in model.db.
// Sets are append-only: importing under an existing name creates the next
// version rather than mutating the stored payload.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "assumptions").Logger(),
	}
}

// Create stores a new version of the set and fills in ID, Version and
// CreatedAt on the passed struct. The payload is the exact document the set
// was parsed from.
func (r *Repository) Create(set *Set, payload []byte) error {
	set.ID = uuid.New().String()
	set.CreatedAt = time.Now().UTC()
	set.Active = false

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var maxVersion sql.NullInt64
		err := tx.QueryRow(
			`SELECT MAX(version) FROM assumption_sets WHERE name = ?`, set.Name,
		).Scan(&maxVersion)
		if err != nil {
			return fmt.Errorf("failed to resolve version for %s: %w", set.Name, err)
		}
		set.Version = int(maxVersion.Int64) + 1

		_, err = tx.Exec(
			`INSERT INTO assumption_sets (id, name, version, active, payload, created_at)
			 VALUES (?, ?, ?, 0, ?, ?)`,
			set.ID, set.Name, set.Version, string(payload), set.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert assumption set %s v%d: %w", set.Name, set.Version, err)
		}

		r.log.Info().
			Str("id", set.ID).
			Str("name", set.Name).
			Int("version", set.Version).
			Msg("Assumption set created")
		return nil
	})
}

// Get loads one set by id. Identity fields come from the row, everything
// else from the stored payload.
func (r *Repository) Get(id string) (*Set, error) {
	row := r.db.QueryRow(
		`SELECT id, name, version, active, payload, created_at
		 FROM assumption_sets WHERE id = ?`, id,
	)
	return r.scanSet(row)
}

// Active returns the set currently marked active.
func (r *Repository) Active() (*Set, error) {
	row := r.db.QueryRow(
		`SELECT id, name, version, active, payload, created_at
		 FROM assumption_sets WHERE active = 1`,
	)
	set, err := r.scanSet(row)
	if err == ErrSetNotFound {
		return nil, ErrNoActiveSet
	}
	return set, err
}

// Activate marks one set active and clears the flag everywhere else.
func (r *Repository) Activate(id string) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE assumption_sets SET active = 0 WHERE active = 1`); err != nil {
			return fmt.Errorf("failed to clear active flag: %w", err)
		}
		res, err := tx.Exec(`UPDATE assumption_sets SET active = 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to activate assumption set %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check activation of %s: %w", id, err)
		}
		if affected == 0 {
			return ErrSetNotFound
		}
		r.log.Info().Str("id", id).Msg("Assumption set activated")
		return nil
	})
}

// List returns all stored sets ordered by name and version.
func (r *Repository) List() ([]*Set, error) {
	rows, err := r.db.Query(
		`SELECT id, name, version, active, payload, created_at
		 FROM assumption_sets ORDER BY name, version`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assumption sets: %w", err)
	}
	defer rows.Close()

	var sets []*Set
	for rows.Next() {
		set, err := r.scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// Payload returns the raw document a set was imported from.
func (r *Repository) Payload(id string) ([]byte, error) {
	var payload string
	err := r.db.QueryRow(`SELECT payload FROM assumption_sets WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payload for %s: %w", id, err)
	}
	return []byte(payload), nil
}

// Count reports how many sets exist, used to decide whether to seed.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM assumption_sets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count assumption sets: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanSet(row rowScanner) (*Set, error) {
	var (
		id, name, payload string
		version           int
		active            bool
		createdAt         int64
	)
	err := row.Scan(&id, &name, &version, &active, &payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assumption set: %w", err)
	}

	set, err := Parse([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("stored assumption set %s is unreadable: %w", id, err)
	}
	set.ID = id
	set.Name = name
	set.Version = version
	set.Active = active
	set.CreatedAt = time.Unix(createdAt, 0).UTC()
	return set, nil
}

// Regions returns the full region catalog ordered by code.
func (r *Repository) Regions() ([]domain.Region, error) {
	rows, err := r.db.Query(`SELECT code, name, divested_after FROM regions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to load regions: %w", err)
	}
	defer rows.Close()

	var regions []domain.Region
	for rows.Next() {
		var (
			region        domain.Region
			divestedAfter sql.NullString
		)
		if err := rows.Scan(&region.Code, &region.Name, &divestedAfter); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		region.DivestedAfter = divestedAfter.String
		regions = append(regions, region)
	}
	return regions, rows.Err()
}

// UpsertRegion inserts or replaces one region catalog entry.
func (r *Repository) UpsertRegion(region domain.Region) error {
	var divestedAfter interface{}
	if region.DivestedAfter != "" {
		divestedAfter = region.DivestedAfter
	}
	_, err := r.db.Exec(
		`INSERT INTO regions (code, name, divested_after) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET name = excluded.name, divested_after = excluded.divested_after`,
		string(region.Code), region.Name, divestedAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert region %s: %w", region.Code, err)
	}
	return nil
}
