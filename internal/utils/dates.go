package utils

import (
	"fmt"
	"time"
)

// DateToUnix converts a YYYY-MM-DD date string to unix seconds at UTC midnight.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Unix(), nil
}

// UnixToDate converts unix seconds to a UTC day truncated time.Time.
func UnixToDate(sec int64) time.Time {
	t := time.Unix(sec, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Midnight truncates a time to UTC midnight.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
