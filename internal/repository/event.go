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

const eventColumns = `id, user_id, title, event_date, event_type, recipient_name, relationship,
		 memo, is_recurring, is_tracked, reminder_offsets, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create stores the event together with its freshly generated reminder
// instances in one transaction.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, instances []models.ReminderInstance) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, user_id, title, event_date, event_type, recipient_name, relationship,
			 memo, is_recurring, is_tracked, reminder_offsets, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			event.ID, event.UserID, event.Title, event.EventDate, event.EventType, event.RecipientName,
			event.Relationship, event.Memo, event.IsRecurring, event.IsTracked, event.ReminderOffsets,
			event.CreatedAt, event.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = insertInstances(ctx, tx, instances)
		return err
	})
}

// Update rewrites the event and replaces its upcoming PENDING instances.
// PENDING instances already due before today survive while the edited event
// still owes them, so an edit after a missed run does not drop them.
// Instances in any other status are kept; the unique key drops regenerated
// duplicates.
func (r *EventRepository) Update(ctx context.Context, event *models.Event, instances []models.ReminderInstance, today time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET title = $1, event_date = $2, event_type = $3, recipient_name = $4,
			 relationship = $5, memo = $6, is_recurring = $7, is_tracked = $8, reminder_offsets = $9,
			 updated_at = $10
			 WHERE id = $11 AND user_id = $12`,
			event.Title, event.EventDate, event.EventType, event.RecipientName, event.Relationship,
			event.Memo, event.IsRecurring, event.IsTracked, event.ReminderOffsets, event.UpdatedAt,
			event.ID, event.UserID,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}

		stale, err := unowedOverdue(ctx, tx, event, today)
		if err != nil {
			return err
		}
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_instances WHERE id = $1`, id); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM reminder_instances WHERE event_id = $1 AND status = 'PENDING' AND trigger_date >= $2`,
			event.ID, today,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = insertInstances(ctx, tx, instances)
		return err
	})
}

// unowedOverdue returns the overdue PENDING instances of event that the
// event no longer calls for.
func unowedOverdue(ctx context.Context, tx dbx.DBTX, event *models.Event, today time.Time) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, offset_days, occurrence_date FROM reminder_instances
		 WHERE event_id = $1 AND status = 'PENDING' AND trigger_date < $2`,
		event.ID, today,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var stale []uuid.UUID
	for rows.Next() {
		var (
			id         uuid.UUID
			offset     int
			occurrence time.Time
		)
		if err := rows.Scan(&id, &offset, &occurrence); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if !event.Owes(offset, occurrence.UTC()) {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stale, nil
}

func (r *EventRepository) GetByID(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error) {
	return getEvent(ctx, r.db, eventID, userID)
}

// ListByUser returns the user's events ordered by date, optionally filtered
// by a case-insensitive search over title, recipient and memo.
func (r *EventRepository) ListByUser(ctx context.Context, userID uuid.UUID, search string) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []any{userID}
	if search != "" {
		query += ` AND (title ILIKE $2 OR recipient_name ILIKE $2 OR memo ILIKE $2)`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY event_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Delete removes the event. Instances cascade; logs keep their snapshot.
func (r *EventRepository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

func getEvent(ctx context.Context, q dbx.DBTX, eventID, userID uuid.UUID) (*models.Event, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND user_id = $2`,
		eventID, userID,
	)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return event, nil
}

func scanEvent(row scanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.EventDate, &e.EventType, &e.RecipientName,
		&e.Relationship, &e.Memo, &e.IsRecurring, &e.IsTracked, &e.ReminderOffsets,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return events, nil
}
