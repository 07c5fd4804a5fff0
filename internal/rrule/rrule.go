// Package rrule expands yearly recurring dates (birthdays, anniversaries)
// using RFC 5545 rules.
package rrule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// YearlyRule returns the RRULE string that repeats the month and day of date
// every year. A February 29 date falls back to the last day of February so
// that non-leap years still get an occurrence on Feb 28.
func YearlyRule(date time.Time) string {
	day := date.Day()
	if date.Month() == time.February && day == 29 {
		day = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYMONTHDAY=%d", int(date.Month()), day)
}

// ParseYearly builds the yearly rule for date, anchored at date itself so
// that no occurrence precedes the original date.
func ParseYearly(date time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(YearlyRule(date))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	opt.Dtstart = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return rrule.NewRRule(*opt)
}

// OccurrenceIn returns the occurrence of date's month and day in year.
// The second result is false for years before the original date.
func OccurrenceIn(date time.Time, year int) (time.Time, bool) {
	rule, err := ParseYearly(date)
	if err != nil {
		return time.Time{}, false
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	occ := rule.Between(start, end, true)
	if len(occ) == 0 {
		return time.Time{}, false
	}
	return occ[0], true
}

// NextOccurrence returns the first occurrence on or after asOf.
func NextOccurrence(date, asOf time.Time) (time.Time, bool) {
	rule, err := ParseYearly(date)
	if err != nil {
		return time.Time{}, false
	}

	next := rule.After(asOf, true)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
