// Package service holds the business rules behind the HTTP API. Services
// depend on small store interfaces implemented by the repository package.
package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/reminder"
)

type EventStore interface {
	Create(ctx context.Context, e *models.Event, instances []models.ReminderInstance) error
	Update(ctx context.Context, e *models.Event, instances []models.ReminderInstance, today time.Time) error
	GetByID(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error)
	ListByUser(ctx context.Context, userID uuid.UUID, search string) ([]*models.Event, error)
	Delete(ctx context.Context, eventID, userID uuid.UUID) error
}

type SettingsStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, defaultOffsets models.Offsets) (*models.ReminderSettings, error)
	Upsert(ctx context.Context, s *models.ReminderSettings) (*models.ReminderSettings, error)
}

// Trigger wakes the reminder scheduler after schedules change.
type Trigger interface {
	Notify()
}

// EventInput is a create or full update request. A nil ReminderOffsets
// means "not given"; an empty non-nil slice disables reminders.
type EventInput struct {
	Title           string              `json:"title"`
	EventDate       string              `json:"event_date"`
	EventType       models.EventType    `json:"event_type"`
	RecipientName   string              `json:"recipient_name"`
	Relationship    models.Relationship `json:"relationship"`
	Memo            string              `json:"memo"`
	IsRecurring     bool                `json:"is_recurring"`
	IsTracked       *bool               `json:"is_tracked"`
	ReminderOffsets models.Offsets      `json:"reminder_offsets"`
}

// EventView is an event with its countdown relative to today.
type EventView struct {
	*models.Event
	DDay           string    `json:"d_day"`
	DaysUntil      int       `json:"days_until"`
	NextOccurrence time.Time `json:"next_occurrence"`
}

type EventService struct {
	events         EventStore
	settings       SettingsStore
	trigger        Trigger
	clock          clock.Clock
	loc            *time.Location
	defaultOffsets models.Offsets
	log            logging.Logger
}

func NewEventService(events EventStore, settings SettingsStore, trigger Trigger, c clock.Clock,
	loc *time.Location, defaultOffsets models.Offsets, log logging.Logger) *EventService {
	if defaultOffsets == nil {
		defaultOffsets = models.DefaultOffsets()
	}
	return &EventService{
		events:         events,
		settings:       settings,
		trigger:        trigger,
		clock:          c,
		loc:            loc,
		defaultOffsets: defaultOffsets,
		log:            log,
	}
}

func (s *EventService) today() time.Time {
	return clock.Today(s.clock, s.loc)
}

func (s *EventService) view(e *models.Event, today time.Time) *EventView {
	return eventView(e, today)
}

func eventView(e *models.Event, today time.Time) *EventView {
	next := e.NextOccurrence(today)
	days := dday.DaysUntil(next, today)
	return &EventView{Event: e, DDay: dday.Label(days), DaysUntil: days, NextOccurrence: next}
}

// apply validates in and copies it onto e. Offsets are left untouched when
// in.ReminderOffsets is nil.
func apply(e *models.Event, in EventInput) error {
	title, err := requireText("title", in.Title, maxTitleLen)
	if err != nil {
		return err
	}
	date, err := dday.ParseDate(in.EventDate)
	if err != nil {
		return err
	}
	if in.EventType == "" {
		in.EventType = models.EventTypeOther
	}
	if !in.EventType.Valid() {
		return invalid("unknown event type %q", in.EventType)
	}
	if !in.Relationship.Valid() {
		return invalid("unknown relationship %q", in.Relationship)
	}
	recipient, err := optionalText("recipient_name", in.RecipientName, maxRecipientLen)
	if err != nil {
		return err
	}
	memo, err := optionalText("memo", in.Memo, maxMemoLen)
	if err != nil {
		return err
	}
	if in.ReminderOffsets != nil {
		if err := in.ReminderOffsets.Validate(maxOffsetDays); err != nil {
			return invalid("reminder_offsets: %v", err)
		}
		e.ReminderOffsets = slices.Clone(in.ReminderOffsets)
	}

	e.Title = title
	e.EventDate = date
	e.EventType = in.EventType
	e.RecipientName = recipient
	e.Relationship = in.Relationship
	e.Memo = memo
	e.IsRecurring = in.IsRecurring
	if in.IsTracked != nil {
		e.IsTracked = *in.IsTracked
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, userID uuid.UUID, in EventInput) (*EventView, error) {
	now := s.clock.Now()
	e := &models.Event{
		ID:        uuid.New(),
		UserID:    userID,
		IsTracked: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := apply(e, in); err != nil {
		return nil, err
	}

	if in.ReminderOffsets == nil {
		settings, err := s.settings.GetOrCreate(ctx, userID, s.defaultOffsets)
		if err != nil {
			return nil, err
		}
		e.ReminderOffsets = slices.Clone(settings.DefaultOffsets)
	}

	today := s.today()
	if err := s.events.Create(ctx, e, reminder.Schedule(e, today, now)); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "event created", "event_id", e.ID, "user_id", userID, "offsets", []int(e.ReminderOffsets))
	s.notify()
	return s.view(e, today), nil
}

func (s *EventService) Get(ctx context.Context, userID, eventID uuid.UUID) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	return s.view(e, s.today()), nil
}

// Update replaces the editable fields and regenerates pending reminders.
// Reminders already sent or failed are kept.
func (s *EventService) Update(ctx context.Context, userID, eventID uuid.UUID, in EventInput) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if err := apply(e, in); err != nil {
		return nil, err
	}
	return s.save(ctx, e)
}

// SetTracking turns reminders for an event on or off.
func (s *EventService) SetTracking(ctx context.Context, userID, eventID uuid.UUID, tracked bool) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	e.IsTracked = tracked
	return s.save(ctx, e)
}

func (s *EventService) save(ctx context.Context, e *models.Event) (*EventView, error) {
	now := s.clock.Now()
	e.UpdatedAt = now

	today := s.today()
	if err := s.events.Update(ctx, e, reminder.Schedule(e, today, now), today); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "event updated", "event_id", e.ID, "user_id", e.UserID)
	s.notify()
	return s.view(e, today), nil
}

func (s *EventService) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	if err := s.events.Delete(ctx, eventID, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "event deleted", "event_id", eventID, "user_id", userID)
	return nil
}

// List filters, orders and pages the user's events. Upcoming events are
// ordered by next occurrence ascending, past ones descending, and "all" by
// stored event date.
func (s *EventService) List(ctx context.Context, userID uuid.UUID, q models.EventQuery) (*models.Page[*EventView], error) {
	if q.Filter == "" {
		q.Filter = models.EventFilterAll
	}
	if !q.Filter.Valid() {
		return nil, invalid("unknown filter %q", q.Filter)
	}

	events, err := s.events.ListByUser(ctx, userID, q.Search)
	if err != nil {
		return nil, err
	}

	today := s.today()
	views := make([]*EventView, 0, len(events))
	for _, e := range events {
		v := s.view(e, today)
		switch q.Filter {
		case models.EventFilterUpcoming:
			if v.NextOccurrence.Before(today) {
				continue
			}
		case models.EventFilterPast:
			if !v.NextOccurrence.Before(today) {
				continue
			}
		}
		views = append(views, v)
	}

	switch q.Filter {
	case models.EventFilterUpcoming:
		slices.SortStableFunc(views, func(a, b *EventView) int {
			return a.NextOccurrence.Compare(b.NextOccurrence)
		})
	case models.EventFilterPast:
		slices.SortStableFunc(views, func(a, b *EventView) int {
			return b.NextOccurrence.Compare(a.NextOccurrence)
		})
	default:
		slices.SortStableFunc(views, func(a, b *EventView) int {
			return cmp.Or(a.EventDate.Compare(b.EventDate), cmp.Compare(a.Title, b.Title))
		})
	}

	return models.Paginate(views, q.PageRequest), nil
}

func (s *EventService) notify() {
	if s.trigger != nil {
		s.trigger.Notify()
	}
}
