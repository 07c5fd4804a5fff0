package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/rrule"
)

type EventType string

const (
	EventTypeBirthday          EventType = "BIRTHDAY"
	EventTypeAnniversary       EventType = "ANNIVERSARY"
	EventTypeAnniversary100    EventType = "ANNIVERSARY_100"
	EventTypeAnniversary200    EventType = "ANNIVERSARY_200"
	EventTypeAnniversary300    EventType = "ANNIVERSARY_300"
	EventTypeAnniversary1Year  EventType = "ANNIVERSARY_1YEAR"
	EventTypeAnniversaryCustom EventType = "ANNIVERSARY_CUSTOM"
	EventTypeValentinesDay     EventType = "VALENTINES_DAY"
	EventTypeWhiteDay          EventType = "WHITE_DAY"
	EventTypePeperoDay         EventType = "PEPERO_DAY"
	EventTypeChristmas         EventType = "CHRISTMAS"
	EventTypeNewYear           EventType = "NEW_YEAR"
	EventTypeHoliday           EventType = "HOLIDAY"
	EventTypeVacation          EventType = "VACATION"
	EventTypeOther             EventType = "OTHER"
)

var eventTypes = []EventType{
	EventTypeBirthday, EventTypeAnniversary, EventTypeAnniversary100, EventTypeAnniversary200,
	EventTypeAnniversary300, EventTypeAnniversary1Year, EventTypeAnniversaryCustom,
	EventTypeValentinesDay, EventTypeWhiteDay, EventTypePeperoDay, EventTypeChristmas,
	EventTypeNewYear, EventTypeHoliday, EventTypeVacation, EventTypeOther,
}

func (t EventType) Valid() bool {
	return slices.Contains(eventTypes, t)
}

type Relationship string

const (
	RelationshipFamily    Relationship = "FAMILY"
	RelationshipPartner   Relationship = "PARTNER"
	RelationshipFriend    Relationship = "FRIEND"
	RelationshipColleague Relationship = "COLLEAGUE"
	RelationshipOther     Relationship = "OTHER"
)

// Valid reports whether r is a known relationship. Empty means unset.
func (r Relationship) Valid() bool {
	switch r {
	case "", RelationshipFamily, RelationshipPartner, RelationshipFriend, RelationshipColleague, RelationshipOther:
		return true
	}
	return false
}

// Offsets is a set of "days before" values stored as a JSON array.
type Offsets []int

// DefaultOffsets is used when neither the request nor the user settings
// provide offsets.
func DefaultOffsets() Offsets {
	return Offsets{30, 7, 1}
}

// Validate checks that every offset is within [0, max] and unique.
func (o Offsets) Validate(max int) error {
	seen := make(map[int]struct{}, len(o))
	for _, v := range o {
		if v < 0 || v > max {
			return fmt.Errorf("offset %d out of range 0..%d", v, max)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate offset %d", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func (o Offsets) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(o))
}

func (o *Offsets) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*o = Offsets{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("offsets: unsupported type %T", src)
	}

	var out []int
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = []int{}
	}
	*o = out
	return nil
}

type Event struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"user_id"`
	Title           string       `json:"title"`
	EventDate       time.Time    `json:"event_date"`
	EventType       EventType    `json:"event_type"`
	RecipientName   string       `json:"recipient_name"`
	Relationship    Relationship `json:"relationship,omitempty"`
	Memo            string       `json:"memo"`
	IsRecurring     bool         `json:"is_recurring"`
	IsTracked       bool         `json:"is_tracked"`
	ReminderOffsets Offsets      `json:"reminder_offsets"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NextOccurrence returns the date the event falls on next, counting asOf
// itself. Non-recurring events always return their stored date.
func (e *Event) NextOccurrence(asOf time.Time) time.Time {
	if !e.IsRecurring {
		return e.EventDate
	}
	if next, ok := rrule.NextOccurrence(e.EventDate, asOf); ok {
		return next
	}
	return e.EventDate
}

// Occurrences returns the occurrence dates considered for reminders as of
// asOf: the stored date, or this year's and next year's anniversary.
func (e *Event) Occurrences(asOf time.Time) []time.Time {
	if !e.IsRecurring {
		return []time.Time{e.EventDate}
	}

	var out []time.Time
	for _, year := range []int{asOf.Year(), asOf.Year() + 1} {
		if occ, ok := rrule.OccurrenceIn(e.EventDate, year); ok {
			out = append(out, occ)
		}
	}
	return out
}

// Owes reports whether the event still calls for the reminder described by
// offset and occurrence date, e.g. after an edit changed its date or offsets.
func (e *Event) Owes(offset int, occurrence time.Time) bool {
	if !e.IsTracked || !slices.Contains(e.ReminderOffsets, offset) {
		return false
	}
	if !e.IsRecurring {
		return e.EventDate.Equal(occurrence)
	}
	occ, ok := rrule.OccurrenceIn(e.EventDate, occurrence.Year())
	return ok && occ.Equal(occurrence)
}

type EventFilter string

const (
	EventFilterAll      EventFilter = "all"
	EventFilterUpcoming EventFilter = "upcoming"
	EventFilterPast     EventFilter = "past"
)

func (f EventFilter) Valid() bool {
	return f == EventFilterAll || f == EventFilterUpcoming || f == EventFilterPast
}

type EventQuery struct {
	Filter EventFilter
	Search string
	PageRequest
}
