package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dbx"
	"github.com/hray3182/daymemory/internal/models"
)

const logColumns = `id, instance_id, event_id, user_id, recipient_name, event_title, event_date,
		 days_before, channel, status, error_message, retry_count, sent_at`

// ReminderLogRepository reads the delivery history. Rows are only ever
// inserted, by ReminderRepository.
type ReminderLogRepository struct {
	db *sql.DB
}

func NewReminderLogRepository(db *sql.DB) *ReminderLogRepository {
	return &ReminderLogRepository{db: db}
}

func (r *ReminderLogRepository) GetByID(ctx context.Context, logID, userID uuid.UUID) (*models.ReminderLog, error) {
	return getLog(ctx, r.db, logID, userID)
}

// List returns the user's logs, newest first.
func (r *ReminderLogRepository) List(ctx context.Context, userID uuid.UUID, q models.ReminderLogQuery) (*models.Page[*models.ReminderLog], error) {
	page := q.PageRequest.Normalize()

	where := ` WHERE user_id = $1`
	args := []any{userID}
	if q.Status != "" {
		args = append(args, q.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if q.EventID != nil {
		args = append(args, *q.EventID)
		where += ` AND event_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminder_logs`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	limitArgs := append(args, page.Size, page.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM reminder_logs`+where+
			` ORDER BY sent_at DESC, id DESC LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
		limitArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var logs []*models.ReminderLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return models.NewPage(logs, page, total), nil
}

// ListSince returns the user's logs sent at or after since, newest first.
func (r *ReminderLogRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ReminderLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM reminder_logs
		 WHERE user_id = $1 AND sent_at >= $2
		 ORDER BY sent_at DESC, id DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var logs []*models.ReminderLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return logs, nil
}

func insertLog(ctx context.Context, q dbx.DBTX, l *models.ReminderLog) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO reminder_logs (`+logColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.InstanceID, l.EventID, l.UserID, l.RecipientName, l.EventTitle, l.EventDate,
		l.DaysBefore, l.Channel, l.Status, l.ErrorMessage, l.RetryCount, l.SentAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func getLog(ctx context.Context, q dbx.DBTX, logID, userID uuid.UUID) (*models.ReminderLog, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM reminder_logs WHERE id = $1 AND user_id = $2`,
		logID, userID,
	)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func scanLog(row scanner) (*models.ReminderLog, error) {
	l := &models.ReminderLog{}
	err := row.Scan(&l.ID, &l.InstanceID, &l.EventID, &l.UserID, &l.RecipientName, &l.EventTitle,
		&l.EventDate, &l.DaysBefore, &l.Channel, &l.Status, &l.ErrorMessage, &l.RetryCount, &l.SentAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}
