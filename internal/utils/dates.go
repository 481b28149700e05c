package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateToUnix converts a YYYY-MM-DD date string to a Unix timestamp at
// midnight UTC. All date columns store this representation.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, err)
	}
	return t.Unix(), nil
}

// UnixToDate converts a Unix timestamp back to a YYYY-MM-DD string in UTC.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// DayUnix truncates a time to midnight UTC and returns the Unix timestamp.
// Use this when storing a time.Time into a date column.
func DayUnix(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// UnixToDay converts a stored date column value back to midnight UTC.
func UnixToDay(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
