// Package clock abstracts the current time so that date arithmetic can be
// tested against a fixed instant.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Date returns midnight UTC of the calendar date of t in loc.
// All date comparisons in the service use this normalised form.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the local calendar date of c.Now() in loc.
func Today(c Clock, loc *time.Location) time.Time {
	return Date(c.Now(), loc)
}
