package domain

import (
	"fmt"
	"sort"
	"time"
)

// DefaultQuarterDays is the length of an appended forecast quarter (13 weeks).
// Historical 14-week quarters are captured by their stored end dates.
const DefaultQuarterDays = 91

// FiscalQuarter identifies one fiscal period on the retail 13-week grid.
// The end date is authoritative; year and quarter are reporting labels.
type FiscalQuarter struct {
	Year    int       `json:"year"`
	Quarter int       `json:"quarter"` // 1..4
	EndDate time.Time `json:"end_date"`
}

// Key returns the canonical identifier, e.g. "FY2025Q2".
func (q FiscalQuarter) Key() string {
	return fmt.Sprintf("FY%dQ%d", q.Year, q.Quarter)
}

// After reports whether q ends after other.
func (q FiscalQuarter) After(other FiscalQuarter) bool {
	return q.EndDate.After(other.EndDate)
}

// Before reports whether q ends before other.
func (q FiscalQuarter) Before(other FiscalQuarter) bool {
	return q.EndDate.Before(other.EndDate)
}

// IsZero reports whether the quarter is unset.
func (q FiscalQuarter) IsZero() bool {
	return q.Year == 0 && q.Quarter == 0 && q.EndDate.IsZero()
}

// Calendar is the ordered fiscal quarter grid. It is built from stored
// period-end anchors and can be extended with synthetic forecast quarters.
type Calendar struct {
	quarters []FiscalQuarter
	byKey    map[string]int
}

// NewCalendar builds a calendar from quarters in any order. Quarters must have
// distinct keys and strictly increasing end dates once sorted.
func NewCalendar(quarters []FiscalQuarter) (*Calendar, error) {
	if len(quarters) == 0 {
		return nil, fmt.Errorf("calendar requires at least one quarter")
	}

	sorted := make([]FiscalQuarter, len(quarters))
	copy(sorted, quarters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EndDate.Before(sorted[j].EndDate)
	})

	byKey := make(map[string]int, len(sorted))
	for i, q := range sorted {
		if q.Quarter < 1 || q.Quarter > 4 {
			return nil, fmt.Errorf("quarter %s: quarter number %d out of range", q.Key(), q.Quarter)
		}
		if i > 0 && !sorted[i-1].EndDate.Before(q.EndDate) {
			return nil, fmt.Errorf("quarter %s: end date not after %s", q.Key(), sorted[i-1].Key())
		}
		if _, dup := byKey[q.Key()]; dup {
			return nil, fmt.Errorf("duplicate quarter key %s", q.Key())
		}
		byKey[q.Key()] = i
	}

	return &Calendar{quarters: sorted, byKey: byKey}, nil
}

// Quarters returns the grid in ascending end-date order.
func (c *Calendar) Quarters() []FiscalQuarter {
	out := make([]FiscalQuarter, len(c.quarters))
	copy(out, c.quarters)
	return out
}

// Latest returns the last quarter on the grid.
func (c *Calendar) Latest() FiscalQuarter {
	return c.quarters[len(c.quarters)-1]
}

// ByKey looks up a quarter by its canonical key.
func (c *Calendar) ByKey(key string) (FiscalQuarter, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return FiscalQuarter{}, false
	}
	return c.quarters[i], true
}

// PriorYear returns the same fiscal quarter one year earlier, used for all
// YoY comparisons. The grid supplies the exact end date so 14-week quarters
// resolve correctly.
func (c *Calendar) PriorYear(q FiscalQuarter) (FiscalQuarter, bool) {
	return c.ByKey(fmt.Sprintf("FY%dQ%d", q.Year-1, q.Quarter))
}

// StartDate returns the first day of a quarter: the day after the previous
// quarter's end, or end - (DefaultQuarterDays - 1) for the first quarter on
// the grid.
func (c *Calendar) StartDate(q FiscalQuarter) time.Time {
	i, ok := c.byKey[q.Key()]
	if !ok || i == 0 {
		return q.EndDate.AddDate(0, 0, -(DefaultQuarterDays - 1))
	}
	return c.quarters[i-1].EndDate.AddDate(0, 0, 1)
}

// Days returns the number of calendar days in the quarter, inclusive.
func (c *Calendar) Days(q FiscalQuarter) int {
	start := c.StartDate(q)
	return int(q.EndDate.Sub(start).Hours()/24) + 1
}

// Extend appends n forecast quarters of quarterDays days each and returns the
// appended quarters. Labels continue the fiscal year/quarter sequence.
func (c *Calendar) Extend(n, quarterDays int) []FiscalQuarter {
	if quarterDays <= 0 {
		quarterDays = DefaultQuarterDays
	}

	appended := make([]FiscalQuarter, 0, n)
	for i := 0; i < n; i++ {
		prev := c.quarters[len(c.quarters)-1]
		next := FiscalQuarter{
			Year:    prev.Year,
			Quarter: prev.Quarter + 1,
			EndDate: prev.EndDate.AddDate(0, 0, quarterDays),
		}
		if next.Quarter > 4 {
			next.Quarter = 1
			next.Year = prev.Year + 1
		}
		c.byKey[next.Key()] = len(c.quarters)
		c.quarters = append(c.quarters, next)
		appended = append(appended, next)
	}

	return appended
}

// Between returns the quarters ending within [from, to], inclusive.
func (c *Calendar) Between(from, to time.Time) []FiscalQuarter {
	var out []FiscalQuarter
	for _, q := range c.quarters {
		if q.EndDate.Before(from) || q.EndDate.After(to) {
			continue
		}
		out = append(out, q)
	}
	return out
}
