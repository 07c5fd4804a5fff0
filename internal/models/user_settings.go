package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationMethod string

const (
	NotifyEmail    NotificationMethod = "EMAIL"
	NotifySMS      NotificationMethod = "SMS"
	NotifyBoth     NotificationMethod = "BOTH"
	NotifyTelegram NotificationMethod = "TELEGRAM"
)

func (m NotificationMethod) Valid() bool {
	switch m {
	case NotifyEmail, NotifySMS, NotifyBoth, NotifyTelegram:
		return true
	}
	return false
}

// ReminderSettings are the per-user reminder defaults.
type ReminderSettings struct {
	UserID             uuid.UUID          `json:"user_id"`
	Enabled            bool               `json:"enabled"`
	DefaultOffsets     Offsets            `json:"default_offsets"`
	NotificationMethod NotificationMethod `json:"notification_method"`
	PhoneNumber        string             `json:"phone_number"`
	TelegramChatID     *int64             `json:"telegram_chat_id"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewDefaultReminderSettings creates settings with default values.
func NewDefaultReminderSettings(userID uuid.UUID) *ReminderSettings {
	return &ReminderSettings{
		UserID:             userID,
		Enabled:            true,
		DefaultOffsets:     DefaultOffsets(),
		NotificationMethod: NotifyEmail,
	}
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
