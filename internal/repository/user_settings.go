package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/models"
)

const settingsColumns = `user_id, enabled, default_offsets, notification_method, phone_number,
		 telegram_chat_id, updated_at`

type ReminderSettingsRepository struct {
	db *sql.DB
}

func NewReminderSettingsRepository(db *sql.DB) *ReminderSettingsRepository {
	return &ReminderSettingsRepository{db: db}
}

// GetOrCreate retrieves the settings, creating them with defaultOffsets if
// none exist. Existing rows keep their offsets.
func (r *ReminderSettingsRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, defaultOffsets models.Offsets) (*models.ReminderSettings, error) {
	if defaultOffsets == nil {
		defaultOffsets = models.DefaultOffsets()
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO reminder_settings (user_id, default_offsets) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING `+settingsColumns,
		userID, defaultOffsets,
	)
	s, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Upsert stores the full settings row.
func (r *ReminderSettingsRepository) Upsert(ctx context.Context, s *models.ReminderSettings) (*models.ReminderSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO reminder_settings (`+settingsColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		     enabled = EXCLUDED.enabled,
		     default_offsets = EXCLUDED.default_offsets,
		     notification_method = EXCLUDED.notification_method,
		     phone_number = EXCLUDED.phone_number,
		     telegram_chat_id = EXCLUDED.telegram_chat_id,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+settingsColumns,
		s.UserID, s.Enabled, s.DefaultOffsets, s.NotificationMethod, s.PhoneNumber,
		s.TelegramChatID, s.UpdatedAt,
	)
	saved, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func scanSettings(row scanner) (*models.ReminderSettings, error) {
	s := &models.ReminderSettings{}
	err := row.Scan(&s.UserID, &s.Enabled, &s.DefaultOffsets, &s.NotificationMethod,
		&s.PhoneNumber, &s.TelegramChatID, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
