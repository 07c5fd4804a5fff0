// Package dday computes the countdown label shown next to every event.
package dday

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hray3182/daymemory/internal/common"
)

const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns the calendar date as midnight UTC. The time of day and the
// offset of a timestamp are discarded.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", common.ErrValidation)
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", common.ErrValidation, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole number of days from today to eventDate.
// Negative values mean the date has passed.
func DaysUntil(eventDate, today time.Time) int {
	diff := midnight(eventDate).Sub(midnight(today))
	return int(math.Ceil(diff.Hours() / 24))
}

// Label renders a day count as D-Day, D-n or D+n.
func Label(days int) string {
	switch {
	case days == 0:
		return "D-Day"
	case days > 0:
		return fmt.Sprintf("D-%d", days)
	default:
		return fmt.Sprintf("D+%d", -days)
	}
}

// Calculate parses dateStr and returns its label relative to today.
func Calculate(dateStr string, today time.Time) (string, error) {
	d, err := ParseDate(dateStr)
	if err != nil {
		return "", err
	}
	return Label(DaysUntil(d, today)), nil
}
