// Package clientdata persists externally sourced feed data in cache.db.
// Cached payloads carry an expiry for cache-first reads; stale rows survive
// until a cleanup pass so a dead feed still has something to serve. Rate
// fixings are inputs rather than cache and never expire.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/utils"
)

// Namespaces partition cache keys per feed.
const (
	NamespaceRateFeed = "ratefeed"
)

// Fixing is one day's externally sourced benchmark rate, annualized percent.
type Fixing struct {
	Day     time.Time `json:"day"`
	RatePct float64   `json:"rate_pct"`
	Source  string    `json:"source"`
}

// Repository provides cache and fixing storage over cache.db.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func cacheKey(namespace, key string) string {
	return namespace + ":" + key
}

// Store saves a msgpack-encoded payload with expiration = now + ttl.
func (r *Repository) Store(namespace, key string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload %s: %w", key, err)
	}

	now := time.Now()
	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO market_data_cache (cache_key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		cacheKey(namespace, key), payload, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// GetIfFresh decodes into out only when the entry has not expired. Returns
// false when the key is missing or stale; use Get to read stale data as a
// fallback when the feed is down.
func (r *Repository) GetIfFresh(namespace, key string, out interface{}) (bool, error) {
	return r.get(namespace, key, out, true)
}

// Get decodes into out regardless of expiration. Stale data beats no data.
func (r *Repository) Get(namespace, key string, out interface{}) (bool, error) {
	return r.get(namespace, key, out, false)
}

func (r *Repository) get(namespace, key string, out interface{}, freshOnly bool) (bool, error) {
	query := `SELECT payload FROM market_data_cache WHERE cache_key = ?`
	args := []interface{}{cacheKey(namespace, key)}
	if freshOnly {
		query += ` AND expires_at > ?`
		args = append(args, time.Now().Unix())
	}

	var payload []byte
	err := r.db.QueryRow(query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Delete removes one cache entry.
func (r *Repository) Delete(namespace, key string) error {
	_, err := r.db.Exec(`DELETE FROM market_data_cache WHERE cache_key = ?`,
		cacheKey(namespace, key))
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all entries past their expiry. Returns rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM market_data_cache WHERE expires_at < ?`,
		time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cache entries: %w", err)
	}
	return deleted, nil
}

// UpsertFixings stores daily fixings keyed by midnight UTC.
func (r *Repository) UpsertFixings(fixings []Fixing) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, f := range fixings {
			_, err := tx.Exec(`
				INSERT INTO rate_fixings (day, rate_pct, source)
				VALUES (?, ?, ?)
				ON CONFLICT(day) DO UPDATE SET
					rate_pct = excluded.rate_pct,
					source = excluded.source`,
				utils.DayUnix(f.Day), f.RatePct, f.Source)
			if err != nil {
				return fmt.Errorf("failed to upsert fixing for %s: %w",
					f.Day.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// RateFixings returns every stored fixing keyed by midnight-UTC unix day,
// the shape the treasury rate path consumes.
func (r *Repository) RateFixings() (map[int64]float64, error) {
	rows, err := r.db.Query(`SELECT day, rate_pct FROM rate_fixings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate fixings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var day int64
		var rate float64
		if err := rows.Scan(&day, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate fixing: %w", err)
		}
		out[day] = rate
	}
	return out, rows.Err()
}

// Fixings lists stored fixings in day order.
func (r *Repository) Fixings() ([]Fixing, error) {
	rows, err := r.db.Query(`SELECT day, rate_pct, source FROM rate_fixings ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate fixings: %w", err)
	}
	defer rows.Close()

	var out []Fixing
	for rows.Next() {
		var f Fixing
		var day int64
		if err := rows.Scan(&day, &f.RatePct, &f.Source); err != nil {
			return nil, fmt.Errorf("failed to scan rate fixing: %w", err)
		}
		f.Day = utils.UnixToDay(day)
		out = append(out, f)
	}
	return out, rows.Err()
}
