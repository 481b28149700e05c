package treasury

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/utils"
)

// Repository stores the funding and rate event schedules in model.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "treasury").Logger(),
	}
}

// UpsertFundingEvent inserts or replaces one capital-flow event, assigning
// an id when the event is new.
func (r *Repository) UpsertFundingEvent(event *FundingEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	var note interface{}
	if event.Note != "" {
		note = event.Note
	}
	_, err := r.db.Exec(
		`INSERT INTO funding_events (id, event_date, amount, fee_rate, kind, note)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    event_date = excluded.event_date, amount = excluded.amount,
		    fee_rate = excluded.fee_rate, kind = excluded.kind, note = excluded.note`,
		event.ID, utils.DayUnix(event.Date), event.Amount, event.FeeRate, event.Kind, note,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert funding event %s: %w", event.ID, err)
	}
	return nil
}

// FundingEvents returns all capital-flow events ordered by date.
func (r *Repository) FundingEvents() ([]FundingEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, event_date, amount, fee_rate, kind, note
		 FROM funding_events ORDER BY event_date, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load funding events: %w", err)
	}
	defer rows.Close()

	var events []FundingEvent
	for rows.Next() {
		var (
			event FundingEvent
			day   int64
			note  sql.NullString
		)
		if err := rows.Scan(&event.ID, &day, &event.Amount, &event.FeeRate, &event.Kind, &note); err != nil {
			return nil, fmt.Errorf("failed to scan funding event: %w", err)
		}
		event.Date = utils.UnixToDay(day)
		event.Note = note.String
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteFundingEvent removes one event by id.
func (r *Repository) DeleteFundingEvent(id string) error {
	_, err := r.db.Exec(`DELETE FROM funding_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete funding event %s: %w", id, err)
	}
	return nil
}

// UpsertRateEvent inserts or replaces one rate-path change.
func (r *Repository) UpsertRateEvent(event *RateEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := r.db.Exec(
		`INSERT INTO rate_events (id, effective_date, delta_bps, to_pct)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    effective_date = excluded.effective_date,
		    delta_bps = excluded.delta_bps, to_pct = excluded.to_pct`,
		event.ID, utils.DayUnix(event.Effective), event.DeltaBps, event.ToPct,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate event %s: %w", event.ID, err)
	}
	return nil
}

// RateEvents returns all rate-path changes ordered by effective date.
func (r *Repository) RateEvents() ([]RateEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, effective_date, delta_bps, to_pct
		 FROM rate_events ORDER BY effective_date, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate events: %w", err)
	}
	defer rows.Close()

	var events []RateEvent
	for rows.Next() {
		var (
			event RateEvent
			day   int64
			delta sql.NullFloat64
			level sql.NullFloat64
		)
		if err := rows.Scan(&event.ID, &day, &delta, &level); err != nil {
			return nil, fmt.Errorf("failed to scan rate event: %w", err)
		}
		event.Effective = utils.UnixToDay(day)
		if delta.Valid {
			event.DeltaBps = &delta.Float64
		}
		if level.Valid {
			event.ToPct = &level.Float64
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteRateEvent removes one event by id.
func (r *Repository) DeleteRateEvent(id string) error {
	_, err := r.db.Exec(`DELETE FROM rate_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rate event %s: %w", id, err)
	}
	return nil
}
