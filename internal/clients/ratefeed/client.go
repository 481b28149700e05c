// Package ratefeed pulls daily benchmark rate fixings from the published
// reference-rate feed and stores them for the treasury rate path. Fixings
// override the modeled path on the days present, so a sync before a run
// anchors the accrual to what the market actually set.
package ratefeed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/clientdata"
)

const defaultSyncDays = 30

// Client for the New York Fed reference-rate API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	repo    *clientdata.Repository
}

// NewClient creates a fixings feed client. repo stores both the response
// cache and the parsed fixings.
func NewClient(baseURL string, repo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://markets.newyorkfed.org/api/rates/secured/sofr/last"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "ratefeed").Logger(),
		repo:    repo,
	}
}

type feedResponse struct {
	RefRates []struct {
		EffectiveDate string  `json:"effectiveDate"`
		PercentRate   float64 `json:"percentRate"`
	} `json:"refRates"`
}

// Sync fetches the trailing fixings and upserts them into storage. Returns
// how many days were written.
func (c *Client) Sync(days int) (int, error) {
	if days <= 0 {
		days = defaultSyncDays
	}

	fixings, err := c.fetch(days)
	if err != nil {
		return 0, err
	}

	if err := c.repo.UpsertFixings(fixings); err != nil {
		return 0, fmt.Errorf("failed to store fixings: %w", err)
	}

	c.log.Info().
		Int("days", len(fixings)).
		Time("latest", fixings[len(fixings)-1].Day).
		Msg("Synced rate fixings")
	return len(fixings), nil
}

// fetch returns fixings with cache-first behavior. If the feed fails, stale
// cached data is served when available: stale fixings beat an empty path.
func (c *Client) fetch(days int) ([]clientdata.Fixing, error) {
	key := fmt.Sprintf("last-%d", days)

	var cached []clientdata.Fixing
	if hit, err := c.repo.GetIfFresh(clientdata.NamespaceRateFeed, key, &cached); err == nil && hit {
		c.log.Debug().Int("days", len(cached)).Msg("Cache hit")
		return cached, nil
	}

	url := fmt.Sprintf("%s/%d.json", c.baseURL, days)
	c.log.Debug().Str("url", url).Msg("Fetching fixings")

	resp, err := c.client.Get(url)
	if err != nil {
		if stale, ok := c.getStaleFromCache(key); ok {
			c.log.Warn().Err(err).Msg("Feed unreachable, using stale cached fixings")
			return stale, nil
		}
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(key); ok {
			c.log.Warn().Int("status", resp.StatusCode).Msg("Feed error, using stale cached fixings")
			return stale, nil
		}
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var result feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(key); ok {
			c.log.Warn().Err(err).Msg("Failed to parse feed response, using stale cached fixings")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	var fixings []clientdata.Fixing
	for _, row := range result.RefRates {
		day, err := time.Parse("2006-01-02", row.EffectiveDate)
		if err != nil {
			c.log.Warn().Str("date", row.EffectiveDate).Msg("Skipping fixing with malformed date")
			continue
		}
		fixings = append(fixings, clientdata.Fixing{
			Day:     day,
			RatePct: row.PercentRate,
			Source:  "sofr",
		})
	}
	if len(fixings) == 0 {
		return nil, fmt.Errorf("feed returned no usable fixings")
	}

	if err := c.repo.Store(clientdata.NamespaceRateFeed, key, fixings, clientdata.TTLRateFixings); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to cache fixings")
	}

	return fixings, nil
}

// getStaleFromCache retrieves cached fixings even if expired.
func (c *Client) getStaleFromCache(key string) ([]clientdata.Fixing, bool) {
	var cached []clientdata.Fixing
	hit, err := c.repo.Get(clientdata.NamespaceRateFeed, key, &cached)
	if err != nil || !hit || len(cached) == 0 {
		return nil, false
	}
	return cached, true
}
