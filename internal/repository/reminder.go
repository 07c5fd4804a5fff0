package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dbx"
	"github.com/hray3182/daymemory/internal/models"
)

const dueColumns = `ri.id, ri.event_id, ri.user_id, ri.offset_days, ri.occurrence_year, ri.occurrence_date,
		 ri.trigger_date, ri.status, ri.retry_count, ri.claimed_at, ri.last_error, ri.created_at, ri.updated_at,
		 e.title, e.event_type, e.recipient_name,
		 u.email, u.name, COALESCE(s.phone_number, ''), s.telegram_chat_id, COALESCE(s.notification_method, 'EMAIL')`

const dueFrom = ` FROM reminder_instances ri
		 JOIN events e ON e.id = ri.event_id
		 JOIN users u ON u.id = ri.user_id
		 LEFT JOIN reminder_settings s ON s.user_id = ri.user_id`

// ReminderRepository persists reminder instances and the delivery attempts
// made for them.
type ReminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// ListTrackedEvents returns every tracked event that has at least one offset.
func (r *ReminderRepository) ListTrackedEvents(ctx context.Context) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE is_tracked AND jsonb_array_length(reminder_offsets) > 0
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// UpsertInstances inserts instances that do not exist yet and reports how
// many rows were added.
func (r *ReminderRepository) UpsertInstances(ctx context.Context, instances []models.ReminderInstance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	var added int
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := insertInstances(ctx, tx, instances)
		added = n
		return err
	})
	return added, err
}

func (r *ReminderRepository) ListDue(ctx context.Context, q models.DueQuery) ([]*models.DueReminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dueColumns+dueFrom+`
		 WHERE ri.trigger_date <= $1
		 AND e.is_tracked
		 AND COALESCE(s.enabled, TRUE)
		 AND (ri.status = 'PENDING'
		      OR (ri.status = 'IN_PROGRESS' AND ri.claimed_at < $2)
		      OR (ri.status = 'FAILED' AND ri.retry_count < $3 AND ri.claimed_at < $4))
		 ORDER BY ri.trigger_date ASC, ri.id ASC`,
		q.AsOf, q.StaleBefore, q.RetryLimit, q.RetryBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var due []*models.DueReminder
	for rows.Next() {
		d, err := scanDue(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return due, nil
}

// GetDue loads one instance of the user with its delivery details.
func (r *ReminderRepository) GetDue(ctx context.Context, instanceID, userID uuid.UUID) (*models.DueReminder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dueColumns+dueFrom+` WHERE ri.id = $1 AND ri.user_id = $2`,
		instanceID, userID,
	)
	d, err := scanDue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

// Claim moves a claimable instance to IN_PROGRESS in a single conditional
// update. ok is false when another worker got there first.
func (r *ReminderRepository) Claim(ctx context.Context, instanceID uuid.UUID, q models.DueQuery, now time.Time) (retryCount int, ok bool, err error) {
	err = r.db.QueryRowContext(ctx,
		`UPDATE reminder_instances SET status = 'IN_PROGRESS', claimed_at = $2, updated_at = $2
		 WHERE id = $1
		 AND (status = 'PENDING'
		      OR (status = 'IN_PROGRESS' AND claimed_at < $3)
		      OR (status = 'FAILED' AND retry_count < $4 AND claimed_at < $5))
		 RETURNING retry_count`,
		instanceID, now, q.StaleBefore, q.RetryLimit, q.RetryBefore,
	).Scan(&retryCount)
	return claimResult(retryCount, err)
}

// ClaimFailed claims a FAILED instance of the user for a manual retry.
func (r *ReminderRepository) ClaimFailed(ctx context.Context, instanceID, userID uuid.UUID, now time.Time) (retryCount int, ok bool, err error) {
	err = r.db.QueryRowContext(ctx,
		`UPDATE reminder_instances SET status = 'IN_PROGRESS', claimed_at = $3, updated_at = $3
		 WHERE id = $1 AND user_id = $2 AND status = 'FAILED'
		 RETURNING retry_count`,
		instanceID, userID, now,
	).Scan(&retryCount)
	return claimResult(retryCount, err)
}

func claimResult(retryCount int, err error) (int, bool, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return retryCount, true, nil
}

// Complete records the attempt and the final instance status atomically.
// A failed attempt increments retry_count. The status is only written while
// the claim taken at claimedAt is still held; otherwise the log row is kept
// and held is false.
func (r *ReminderRepository) Complete(ctx context.Context, instanceID uuid.UUID, claimedAt time.Time, status models.InstanceStatus, lastError string, log *models.ReminderLog) (held bool, err error) {
	increment := 0
	if status == models.InstanceFailed {
		increment = 1
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := insertLog(ctx, tx, log); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE reminder_instances SET status = $2, retry_count = retry_count + $3,
			 last_error = $4, updated_at = $5
			 WHERE id = $1 AND status = 'IN_PROGRESS' AND claimed_at = $6`,
			instanceID, status, increment, lastError, log.SentAt, claimedAt,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		held = n == 1
		return nil
	})
	return held, err
}

// InsertLog appends a log row that is not tied to a status change.
func (r *ReminderRepository) InsertLog(ctx context.Context, log *models.ReminderLog) error {
	return insertLog(ctx, r.db, log)
}

func (r *ReminderRepository) GetLog(ctx context.Context, logID, userID uuid.UUID) (*models.ReminderLog, error) {
	return getLog(ctx, r.db, logID, userID)
}

func (r *ReminderRepository) GetEvent(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error) {
	return getEvent(ctx, r.db, eventID, userID)
}

// GetContact returns the delivery addresses of a user. Users without
// settings get the EMAIL channel.
func (r *ReminderRepository) GetContact(ctx context.Context, userID uuid.UUID) (*models.Contact, error) {
	c := &models.Contact{}
	err := r.db.QueryRowContext(ctx,
		`SELECT u.email, u.name, COALESCE(s.phone_number, ''), s.telegram_chat_id,
		 COALESCE(s.notification_method, 'EMAIL')
		 FROM users u LEFT JOIN reminder_settings s ON s.user_id = u.id
		 WHERE u.id = $1`,
		userID,
	).Scan(&c.Email, &c.Name, &c.PhoneNumber, &c.TelegramChatID, &c.Method)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func insertInstances(ctx context.Context, q dbx.DBTX, instances []models.ReminderInstance) (int, error) {
	var added int
	for _, inst := range instances {
		res, err := q.ExecContext(ctx,
			`INSERT INTO reminder_instances (id, event_id, user_id, offset_days, occurrence_year,
			 occurrence_date, trigger_date, status, retry_count, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			 ON CONFLICT (event_id, offset_days, occurrence_year) DO NOTHING`,
			inst.ID, inst.EventID, inst.UserID, inst.OffsetDays, inst.OccurrenceYear,
			inst.OccurrenceDate, inst.TriggerDate, inst.Status, inst.RetryCount, inst.CreatedAt,
		)
		if err != nil {
			return added, fmt.Errorf("db error: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	return added, nil
}

func scanDue(row scanner) (*models.DueReminder, error) {
	d := &models.DueReminder{}
	i := &d.Instance
	err := row.Scan(&i.ID, &i.EventID, &i.UserID, &i.OffsetDays, &i.OccurrenceYear, &i.OccurrenceDate,
		&i.TriggerDate, &i.Status, &i.RetryCount, &i.ClaimedAt, &i.LastError, &i.CreatedAt, &i.UpdatedAt,
		&d.EventTitle, &d.EventType, &d.RecipientName,
		&d.Contact.Email, &d.Contact.Name, &d.Contact.PhoneNumber, &d.Contact.TelegramChatID, &d.Contact.Method)
	if err != nil {
		return nil, err
	}
	return d, nil
}
