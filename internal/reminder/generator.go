// Package reminder turns events into dated reminder instances and delivers
// the ones that are due.
package reminder

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/models"
)

// Generate returns the reminder instances of e whose trigger date is on or
// after asOf. Recurring events contribute the occurrences of asOf's year and
// the following year. The result holds at most one instance per
// (event, offset, occurrence year) and is ordered by trigger date.
func Generate(e *models.Event, asOf time.Time) []models.ReminderInstance {
	if e == nil || !e.IsTracked || len(e.ReminderOffsets) == 0 {
		return nil
	}

	seen := make(map[models.InstanceKey]struct{})
	var out []models.ReminderInstance

	for _, occ := range e.Occurrences(asOf) {
		if occ.Before(asOf) {
			continue
		}
		for _, offset := range e.ReminderOffsets {
			trigger := occ.AddDate(0, 0, -offset)
			if trigger.Before(asOf) {
				continue
			}

			inst := models.ReminderInstance{
				ID:             uuid.New(),
				EventID:        e.ID,
				UserID:         e.UserID,
				OffsetDays:     offset,
				OccurrenceYear: occ.Year(),
				OccurrenceDate: occ,
				TriggerDate:    trigger,
				Status:         models.InstancePending,
			}
			if _, dup := seen[inst.Key()]; dup {
				continue
			}
			seen[inst.Key()] = struct{}{}
			out = append(out, inst)
		}
	}

	slices.SortStableFunc(out, func(a, b models.ReminderInstance) int {
		if c := a.TriggerDate.Compare(b.TriggerDate); c != 0 {
			return c
		}
		return cmp.Compare(b.OffsetDays, a.OffsetDays)
	})
	return out
}

// Schedule is Generate with the creation timestamps filled in, ready to be
// inserted.
func Schedule(e *models.Event, asOf, now time.Time) []models.ReminderInstance {
	out := Generate(e, asOf)
	for i := range out {
		out[i].CreatedAt = now
		out[i].UpdatedAt = now
	}
	return out
}
