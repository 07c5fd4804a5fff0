package service

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]{6,19}$`)

type SettingsInput struct {
	Enabled            *bool                     `json:"enabled"`
	DefaultOffsets     models.Offsets            `json:"default_offsets"`
	NotificationMethod models.NotificationMethod `json:"notification_method"`
	PhoneNumber        *string                   `json:"phone_number"`
	TelegramChatID     *int64                    `json:"telegram_chat_id"`
}

// SettingsService manages per-user reminder settings. Changing the default
// offsets only affects events created afterwards.
type SettingsService struct {
	settings       SettingsStore
	defaultOffsets models.Offsets
	clock          clock.Clock
	log            logging.Logger
}

func NewSettingsService(settings SettingsStore, defaultOffsets models.Offsets, c clock.Clock, log logging.Logger) *SettingsService {
	return &SettingsService{settings: settings, defaultOffsets: defaultOffsets, clock: c, log: log}
}

func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (*models.ReminderSettings, error) {
	return s.settings.GetOrCreate(ctx, userID, s.defaultOffsets)
}

// Update applies the fields present in in. Omitted fields keep their value.
func (s *SettingsService) Update(ctx context.Context, userID uuid.UUID, in SettingsInput) (*models.ReminderSettings, error) {
	current, err := s.settings.GetOrCreate(ctx, userID, s.defaultOffsets)
	if err != nil {
		return nil, err
	}

	next := *current
	if in.Enabled != nil {
		next.Enabled = *in.Enabled
	}
	if in.DefaultOffsets != nil {
		if err := in.DefaultOffsets.Validate(maxOffsetDays); err != nil {
			return nil, invalid("default_offsets: %v", err)
		}
		next.DefaultOffsets = slices.Clone(in.DefaultOffsets)
	}
	if in.NotificationMethod != "" {
		if !in.NotificationMethod.Valid() {
			return nil, invalid("unknown notification method %q", in.NotificationMethod)
		}
		next.NotificationMethod = in.NotificationMethod
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, invalid("invalid phone number")
		}
		next.PhoneNumber = phone
	}
	if in.TelegramChatID != nil {
		next.TelegramChatID = in.TelegramChatID
	}

	switch next.NotificationMethod {
	case models.NotifySMS, models.NotifyBoth:
		if next.PhoneNumber == "" {
			return nil, invalid("phone_number is required for %s notifications", next.NotificationMethod)
		}
	case models.NotifyTelegram:
		if next.TelegramChatID == nil {
			return nil, invalid("telegram_chat_id is required for TELEGRAM notifications")
		}
	}

	next.UpdatedAt = s.clock.Now()
	saved, err := s.settings.Upsert(ctx, &next)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "reminder settings updated", "user_id", userID, "enabled", saved.Enabled,
		"method", saved.NotificationMethod)
	return saved, nil
}
