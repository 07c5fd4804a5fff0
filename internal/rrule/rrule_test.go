package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearlyRule(t *testing.T) {
	assert.Equal(t, "FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=2", YearlyRule(day(1990, 1, 2)))
	assert.Equal(t, "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=-1", YearlyRule(day(2000, 2, 29)))
	assert.Equal(t, "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=28", YearlyRule(day(2001, 2, 28)))
}

func TestOccurrenceIn(t *testing.T) {
	birthday := day(1990, 5, 17)

	got, ok := OccurrenceIn(birthday, 2025)
	require.True(t, ok)
	assert.Equal(t, day(2025, 5, 17), got)

	got, ok = OccurrenceIn(birthday, 1990)
	require.True(t, ok)
	assert.Equal(t, birthday, got)

	_, ok = OccurrenceIn(birthday, 1989)
	assert.False(t, ok)
}

func TestOccurrenceIn_LeapDay(t *testing.T) {
	leap := day(2000, 2, 29)

	got, ok := OccurrenceIn(leap, 2025)
	require.True(t, ok)
	assert.Equal(t, day(2025, 2, 28), got)

	got, ok = OccurrenceIn(leap, 2028)
	require.True(t, ok)
	assert.Equal(t, day(2028, 2, 29), got)
}

func TestNextOccurrence(t *testing.T) {
	birthday := day(1990, 1, 2)

	got, ok := NextOccurrence(birthday, day(2025, 12, 5))
	require.True(t, ok)
	assert.Equal(t, day(2026, 1, 2), got)

	got, ok = NextOccurrence(birthday, day(2026, 1, 2))
	require.True(t, ok)
	assert.Equal(t, day(2026, 1, 2), got, "occurrence on asOf counts")

	got, ok = NextOccurrence(day(2030, 7, 1), day(2025, 1, 1))
	require.True(t, ok)
	assert.Equal(t, day(2030, 7, 1), got, "no occurrence before the original date")
}
