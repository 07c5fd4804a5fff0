package models

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstancePending    InstanceStatus = "PENDING"
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceSent       InstanceStatus = "SENT"
	InstanceFailed     InstanceStatus = "FAILED"
)

// ReminderInstance is one concrete (event, offset, occurrence year)
// reminder obligation.
type ReminderInstance struct {
	ID             uuid.UUID      `json:"id"`
	EventID        uuid.UUID      `json:"event_id"`
	UserID         uuid.UUID      `json:"user_id"`
	OffsetDays     int            `json:"offset_days"`
	OccurrenceYear int            `json:"occurrence_year"`
	OccurrenceDate time.Time      `json:"occurrence_date"`
	TriggerDate    time.Time      `json:"trigger_date"`
	Status         InstanceStatus `json:"status"`
	RetryCount     int            `json:"retry_count"` // failed attempts so far
	ClaimedAt      *time.Time     `json:"claimed_at,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Key identifies an instance independently of its row id.
type InstanceKey struct {
	EventID        uuid.UUID
	OffsetDays     int
	OccurrenceYear int
}

func (r *ReminderInstance) Key() InstanceKey {
	return InstanceKey{EventID: r.EventID, OffsetDays: r.OffsetDays, OccurrenceYear: r.OccurrenceYear}
}

type LogStatus string

const (
	LogSuccess LogStatus = "SUCCESS"
	LogFailed  LogStatus = "FAILED"
)

func (s LogStatus) Valid() bool {
	return s == LogSuccess || s == LogFailed
}

// ReminderLog is an append-only record of one delivery attempt. The event
// fields are copied at send time so the row survives event deletion.
type ReminderLog struct {
	ID            uuid.UUID          `json:"id"`
	InstanceID    *uuid.UUID         `json:"instance_id"`
	EventID       *uuid.UUID         `json:"event_id"`
	UserID        uuid.UUID          `json:"user_id"`
	RecipientName string             `json:"recipient_name"`
	EventTitle    string             `json:"event_title"`
	EventDate     time.Time          `json:"event_date"`
	DaysBefore    int                `json:"days_before"`
	Channel       NotificationMethod `json:"channel"`
	Status        LogStatus          `json:"status"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	RetryCount    int                `json:"retry_count"`
	SentAt        time.Time          `json:"sent_at"`
}

type ReminderLogQuery struct {
	Status  LogStatus
	EventID *uuid.UUID
	PageRequest
}

// DueReminder joins an instance with what is needed to deliver it.
type DueReminder struct {
	Instance      ReminderInstance
	EventTitle    string
	EventType     EventType
	RecipientName string
	Contact       Contact
}

// Contact holds the delivery addresses of a user.
type Contact struct {
	Email          string
	Name           string
	PhoneNumber    string
	TelegramChatID *int64
	Method         NotificationMethod
}

// DueQuery selects the instances a dispatcher run may claim.
type DueQuery struct {
	AsOf        time.Time // trigger date upper bound, inclusive
	StaleBefore time.Time // IN_PROGRESS claims older than this are abandoned
	RetryBefore time.Time // FAILED instances last claimed before this may retry
	RetryLimit  int       // FAILED instances with fewer failures retry automatically
}
