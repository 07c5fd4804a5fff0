package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/reminder"
)

const (
	upcomingWindowDays = 90
	activityWindowDays = 7
	maxStatsDays       = 90
)

type EventLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, search string) ([]*models.Event, error)
}

type GiftLister interface {
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Gift, error)
}

// LogHistory is implemented by repository.ReminderLogRepository.
type LogHistory interface {
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ReminderLog, error)
}

type TodayReminder struct {
	EventID       uuid.UUID `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	RecipientName string    `json:"recipient_name"`
	EventDate     time.Time `json:"event_date"`
	DaysBefore    int       `json:"days_before"`
}

type ReminderActivity struct {
	SentCount   int        `json:"sent_count"`
	FailedCount int        `json:"failed_count"`
	LastSentAt  *time.Time `json:"last_sent_at"`
}

type Dashboard struct {
	UpcomingEventsCount   int              `json:"upcoming_events_count"`
	ThisMonthEventsCount  int              `json:"this_month_events_count"`
	UnpurchasedGiftsCount int              `json:"unpurchased_gifts_count"`
	RecentReminders       ReminderActivity `json:"recent_reminders"`
	UpcomingEvents        []*EventView     `json:"upcoming_events"`
	TodayReminders        []TodayReminder  `json:"today_reminders"`
}

type DailyReminderStats struct {
	Date        string `json:"date"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
}

type ReminderStats struct {
	Days        int                  `json:"days"`
	SentCount   int                  `json:"sent_count"`
	FailedCount int                  `json:"failed_count"`
	SuccessRate float64              `json:"success_rate"` // percent, one decimal
	Daily       []DailyReminderStats `json:"daily"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type EventStats struct {
	Year    int                      `json:"year"`
	Total   int                      `json:"total"`
	Monthly []MonthCount             `json:"monthly"`
	ByType  map[models.EventType]int `json:"by_type"`
}

type GiftStats struct {
	TotalGifts     int                         `json:"total_gifts"`
	PurchasedCount int                         `json:"purchased_count"`
	ByCategory     map[models.GiftCategory]int `json:"by_category"`
	TotalSpent     int64                       `json:"total_spent"`
	AveragePrice   int64                       `json:"average_price"`
}

type CalendarEntry struct {
	EventID       uuid.UUID        `json:"event_id"`
	Title         string           `json:"title"`
	Date          time.Time        `json:"date"`
	EventType     models.EventType `json:"event_type"`
	IsTracked     bool             `json:"is_tracked"`
	DaysRemaining int              `json:"days_remaining"`
	DDay          string           `json:"d_day"`
}

// InsightService builds read-only summaries over events, gifts and the
// delivery history of one user.
type InsightService struct {
	events EventLister
	gifts  GiftLister
	logs   LogHistory
	clock  clock.Clock
	loc    *time.Location
}

func NewInsightService(events EventLister, gifts GiftLister, logs LogHistory, c clock.Clock, loc *time.Location) *InsightService {
	if loc == nil {
		loc = time.UTC
	}
	return &InsightService{events: events, gifts: gifts, logs: logs, clock: c, loc: loc}
}

func (s *InsightService) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	events, err := s.events.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	gifts, err := s.gifts.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListSince(ctx, userID, s.clock.Now().AddDate(0, 0, -activityWindowDays))
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock, s.loc)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	out := &Dashboard{UpcomingEvents: []*EventView{}, TodayReminders: []TodayReminder{}}
	for _, e := range events {
		v := eventView(e, today)
		if v.DaysUntil >= 0 && v.DaysUntil <= upcomingWindowDays {
			out.UpcomingEvents = append(out.UpcomingEvents, v)
		}
		if slices.ContainsFunc(e.Occurrences(today), func(occ time.Time) bool {
			return !occ.Before(monthStart) && !occ.After(monthEnd)
		}) {
			out.ThisMonthEventsCount++
		}
		for _, inst := range reminder.Generate(e, today) {
			if inst.TriggerDate.Equal(today) {
				out.TodayReminders = append(out.TodayReminders, TodayReminder{
					EventID:       e.ID,
					EventTitle:    e.Title,
					RecipientName: e.RecipientName,
					EventDate:     inst.OccurrenceDate,
					DaysBefore:    inst.OffsetDays,
				})
			}
		}
	}
	out.UpcomingEventsCount = len(out.UpcomingEvents)

	slices.SortStableFunc(out.UpcomingEvents, func(a, b *EventView) int {
		if c := cmp.Compare(a.DaysUntil, b.DaysUntil); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	slices.SortStableFunc(out.TodayReminders, func(a, b TodayReminder) int {
		if c := a.EventDate.Compare(b.EventDate); c != 0 {
			return c
		}
		return cmp.Compare(a.EventTitle, b.EventTitle)
	})

	for _, g := range gifts {
		if !g.IsPurchased {
			out.UnpurchasedGiftsCount++
		}
	}

	for _, l := range logs {
		switch l.Status {
		case models.LogSuccess:
			out.RecentReminders.SentCount++
		case models.LogFailed:
			out.RecentReminders.FailedCount++
		}
	}
	if len(logs) > 0 {
		last := logs[0].SentAt
		out.RecentReminders.LastSentAt = &last
	}
	return out, nil
}

// ReminderStats reports deliveries of the last days calendar days, today
// included, with one bucket per day oldest first. days defaults to 7.
func (s *InsightService) ReminderStats(ctx context.Context, userID uuid.UUID, days int) (*ReminderStats, error) {
	if days == 0 {
		days = activityWindowDays
	}
	if days < 1 || days > maxStatsDays {
		return nil, invalid("days must be between 1 and %d", maxStatsDays)
	}

	today := clock.Today(s.clock, s.loc)
	first := today.AddDate(0, 0, -(days - 1))
	since := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, s.loc)

	logs, err := s.logs.ListSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	out := &ReminderStats{Days: days, Daily: make([]DailyReminderStats, days)}
	for i := range out.Daily {
		out.Daily[i].Date = first.AddDate(0, 0, i).Format(dday.DateLayout)
	}
	for _, l := range logs {
		i := dday.DaysUntil(clock.Date(l.SentAt, s.loc), first)
		if i < 0 || i >= days {
			continue
		}
		switch l.Status {
		case models.LogSuccess:
			out.SentCount++
			out.Daily[i].SentCount++
		case models.LogFailed:
			out.FailedCount++
			out.Daily[i].FailedCount++
		}
	}
	if total := out.SentCount + out.FailedCount; total > 0 {
		out.SuccessRate = math.Round(float64(out.SentCount)/float64(total)*1000) / 10
	}
	return out, nil
}

// EventStats counts the events falling in year, per month and per type.
// Recurring events count once in every year they recur. year 0 means the
// current year.
func (s *InsightService) EventStats(ctx context.Context, userID uuid.UUID, year int) (*EventStats, error) {
	if year == 0 {
		year = clock.Today(s.clock, s.loc).Year()
	}
	if year < 1 || year > 9999 {
		return nil, invalid("year %d is out of range", year)
	}

	events, err := s.events.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	out := &EventStats{Year: year, Monthly: make([]MonthCount, 12), ByType: map[models.EventType]int{}}
	for i := range out.Monthly {
		out.Monthly[i].Month = fmt.Sprintf("%04d-%02d", year, i+1)
	}
	for _, e := range events {
		occ, ok := occurrenceIn(e, year)
		if !ok {
			continue
		}
		out.Total++
		out.Monthly[occ.Month()-1].Count++
		out.ByType[e.EventType]++
	}
	return out, nil
}

// GiftStats summarises purchases. The average only covers purchased gifts
// with a price.
func (s *InsightService) GiftStats(ctx context.Context, userID uuid.UUID) (*GiftStats, error) {
	gifts, err := s.gifts.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &GiftStats{TotalGifts: len(gifts), ByCategory: map[models.GiftCategory]int{}}
	var priced int64
	for _, g := range gifts {
		if !g.IsPurchased {
			continue
		}
		out.PurchasedCount++
		out.ByCategory[g.Category]++
		if g.Price != nil {
			out.TotalSpent += *g.Price
			priced++
		}
	}
	if priced > 0 {
		out.AveragePrice = out.TotalSpent / priced
	}
	return out, nil
}

// Calendar lists the events falling in the given month, by date.
func (s *InsightService) Calendar(ctx context.Context, userID uuid.UUID, year, month int) ([]CalendarEntry, error) {
	today := clock.Today(s.clock, s.loc)
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}
	if year < 1 || year > 9999 {
		return nil, invalid("year %d is out of range", year)
	}
	if month < 1 || month > 12 {
		return nil, invalid("month must be between 1 and 12")
	}

	events, err := s.events.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	out := []CalendarEntry{}
	for _, e := range events {
		occ, ok := occurrenceIn(e, year)
		if !ok || occ.Month() != time.Month(month) {
			continue
		}
		days := dday.DaysUntil(occ, today)
		out = append(out, CalendarEntry{
			EventID:       e.ID,
			Title:         e.Title,
			Date:          occ,
			EventType:     e.EventType,
			IsTracked:     e.IsTracked,
			DaysRemaining: days,
			DDay:          dday.Label(days),
		})
	}
	slices.SortStableFunc(out, func(a, b CalendarEntry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

func occurrenceIn(e *models.Event, year int) (time.Time, bool) {
	for _, occ := range e.Occurrences(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		if occ.Year() == year {
			return occ, true
		}
	}
	return time.Time{}, false
}
