package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/models"
)

type ReminderLogStore interface {
	GetByID(ctx context.Context, logID, userID uuid.UUID) (*models.ReminderLog, error)
	List(ctx context.Context, userID uuid.UUID, q models.ReminderLogQuery) (*models.Page[*models.ReminderLog], error)
}

// Sender performs manual deliveries. It is implemented by
// reminder.Dispatcher.
type Sender interface {
	Retry(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error)
	RetryInstance(ctx context.Context, userID, instanceID uuid.UUID) (*models.ReminderLog, error)
	SendImmediate(ctx context.Context, userID, eventID uuid.UUID) (*models.ReminderLog, error)
}

type ReminderService struct {
	logs   ReminderLogStore
	sender Sender
}

func NewReminderService(logs ReminderLogStore, sender Sender) *ReminderService {
	return &ReminderService{logs: logs, sender: sender}
}

func (s *ReminderService) Logs(ctx context.Context, userID uuid.UUID, q models.ReminderLogQuery) (*models.Page[*models.ReminderLog], error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, invalid("unknown status %q", q.Status)
	}
	q.PageRequest = q.PageRequest.Normalize()
	return s.logs.List(ctx, userID, q)
}

func (s *ReminderService) Log(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error) {
	return s.logs.GetByID(ctx, logID, userID)
}

// Retry re-sends the failed reminder behind logID.
func (s *ReminderService) Retry(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error) {
	return s.sender.Retry(ctx, userID, logID)
}

func (s *ReminderService) RetryInstance(ctx context.Context, userID, instanceID uuid.UUID) (*models.ReminderLog, error) {
	return s.sender.RetryInstance(ctx, userID, instanceID)
}

// SendNow delivers a reminder for the event's next occurrence right away.
func (s *ReminderService) SendNow(ctx context.Context, userID, eventID uuid.UUID) (*models.ReminderLog, error) {
	return s.sender.SendImmediate(ctx, userID, eventID)
}
