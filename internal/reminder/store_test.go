package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/models"
)

// memStore mirrors the conditional updates of the SQL repository under a
// single lock.
type memStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*models.Event
	contacts  map[uuid.UUID]models.Contact
	disabled  map[uuid.UUID]bool
	instances map[uuid.UUID]*models.ReminderInstance
	keys      map[models.InstanceKey]uuid.UUID
	logs      []models.ReminderLog
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[uuid.UUID]*models.Event),
		contacts:  make(map[uuid.UUID]models.Contact),
		disabled:  make(map[uuid.UUID]bool),
		instances: make(map[uuid.UUID]*models.ReminderInstance),
		keys:      make(map[models.InstanceKey]uuid.UUID),
	}
}

func (s *memStore) addEvent(e *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	if _, ok := s.contacts[e.UserID]; !ok {
		s.contacts[e.UserID] = models.Contact{Email: "user@example.com", Name: "User", Method: models.NotifyEmail}
	}
}

func (s *memStore) ListTrackedEvents(ctx context.Context) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for _, e := range s.events {
		if e.IsTracked && len(e.ReminderOffsets) > 0 {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpsertInstances(ctx context.Context, instances []models.ReminderInstance) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added int
	for _, inst := range instances {
		if _, ok := s.keys[inst.Key()]; ok {
			continue
		}
		cp := inst
		s.instances[cp.ID] = &cp
		s.keys[cp.Key()] = cp.ID
		added++
	}
	return added, nil
}

func claimable(i *models.ReminderInstance, q models.DueQuery) bool {
	switch i.Status {
	case models.InstancePending:
		return true
	case models.InstanceInProgress:
		return i.ClaimedAt != nil && i.ClaimedAt.Before(q.StaleBefore)
	case models.InstanceFailed:
		return i.RetryCount < q.RetryLimit && i.ClaimedAt != nil && i.ClaimedAt.Before(q.RetryBefore)
	}
	return false
}

func (s *memStore) due(i *models.ReminderInstance) *models.DueReminder {
	e := s.events[i.EventID]
	return &models.DueReminder{
		Instance:      *i,
		EventTitle:    e.Title,
		EventType:     e.EventType,
		RecipientName: e.RecipientName,
		Contact:       s.contacts[i.UserID],
	}
}

func (s *memStore) ListDue(ctx context.Context, q models.DueQuery) ([]*models.DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DueReminder
	for _, i := range s.instances {
		e, ok := s.events[i.EventID]
		if !ok || !e.IsTracked || s.disabled[i.UserID] {
			continue
		}
		if i.TriggerDate.After(q.AsOf) || !claimable(i, q) {
			continue
		}
		out = append(out, s.due(i))
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Instance.TriggerDate.Before(out[b].Instance.TriggerDate)
	})
	return out, nil
}

func (s *memStore) GetDue(ctx context.Context, instanceID, userID uuid.UUID) (*models.DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.instances[instanceID]
	if !ok || i.UserID != userID {
		return nil, common.ErrNotFound
	}
	return s.due(i), nil
}

func (s *memStore) Claim(ctx context.Context, instanceID uuid.UUID, q models.DueQuery, now time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.instances[instanceID]
	if !ok || !claimable(i, q) {
		return 0, false, nil
	}
	i.Status = models.InstanceInProgress
	i.ClaimedAt = &now
	return i.RetryCount, true, nil
}

func (s *memStore) ClaimFailed(ctx context.Context, instanceID, userID uuid.UUID, now time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.instances[instanceID]
	if !ok || i.UserID != userID || i.Status != models.InstanceFailed {
		return 0, false, nil
	}
	i.Status = models.InstanceInProgress
	i.ClaimedAt = &now
	return i.RetryCount, true, nil
}

func (s *memStore) Complete(ctx context.Context, instanceID uuid.UUID, claimedAt time.Time, status models.InstanceStatus, lastError string, log *models.ReminderLog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.instances[instanceID]
	if !ok {
		return false, common.ErrNotFound
	}
	s.logs = append(s.logs, *log)
	if i.Status != models.InstanceInProgress || i.ClaimedAt == nil || !i.ClaimedAt.Equal(claimedAt) {
		return false, nil
	}
	i.Status = status
	i.LastError = lastError
	if status == models.InstanceFailed {
		i.RetryCount++
	}
	return true, nil
}

func (s *memStore) InsertLog(ctx context.Context, log *models.ReminderLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *memStore) GetLog(ctx context.Context, logID, userID uuid.UUID) (*models.ReminderLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ID == logID && l.UserID == userID {
			cp := l
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *memStore) GetEvent(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok || e.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) GetContact(ctx context.Context, userID uuid.UUID) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) instance(eventID uuid.UUID, offset int) *models.ReminderInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.instances {
		if i.EventID == eventID && i.OffsetDays == offset {
			cp := *i
			return &cp
		}
	}
	return nil
}

func (s *memStore) snapshotLogs() []models.ReminderLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReminderLog(nil), s.logs...)
}
