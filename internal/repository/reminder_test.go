package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dueCols = []string{"id", "event_id", "user_id", "offset_days", "occurrence_year", "occurrence_date",
	"trigger_date", "status", "retry_count", "claimed_at", "last_error", "created_at", "updated_at",
	"title", "event_type", "recipient_name", "email", "name", "phone_number", "telegram_chat_id", "notification_method"}

func dueQuery() models.DueQuery {
	now := time.Date(2025, 3, 7, 6, 0, 0, 0, time.UTC)
	return models.DueQuery{
		AsOf:        time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		StaleBefore: now.Add(-15 * time.Minute),
		RetryBefore: now,
		RetryLimit:  3,
	}
}

func TestReminderRepository_ListDue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	q := dueQuery()
	id, eventID, userID := uuid.New(), uuid.New(), uuid.New()
	chatID := int64(4242)

	mock.ExpectQuery(`SELECT .* FROM reminder_instances ri JOIN events e .* WHERE ri.trigger_date <= \$1 AND e.is_tracked AND COALESCE\(s.enabled, TRUE\)`).
		WithArgs(q.AsOf, q.StaleBefore, q.RetryLimit, q.RetryBefore).
		WillReturnRows(sqlmock.NewRows(dueCols).AddRow(
			id.String(), eventID.String(), userID.String(), 7, 2025,
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
			"PENDING", 0, nil, "", q.RetryBefore, q.RetryBefore,
			"Mom's birthday", "BIRTHDAY", "Mom", "kim@example.com", "Kim", "", chatID, "TELEGRAM",
		))

	due, err := repo.ListDue(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, due, 1)

	d := due[0]
	assert.Equal(t, id, d.Instance.ID)
	assert.Equal(t, 7, d.Instance.OffsetDays)
	assert.Equal(t, models.InstancePending, d.Instance.Status)
	assert.Nil(t, d.Instance.ClaimedAt)
	assert.Equal(t, "Mom", d.RecipientName)
	assert.Equal(t, models.NotifyTelegram, d.Contact.Method)
	require.NotNil(t, d.Contact.TelegramChatID)
	assert.Equal(t, chatID, *d.Contact.TelegramChatID)
}

func TestReminderRepository_Claim(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	q := dueQuery()
	id := uuid.New()
	now := q.RetryBefore

	claimSQL := `UPDATE reminder_instances SET status = 'IN_PROGRESS', claimed_at = \$2, updated_at = \$2 WHERE id = \$1 AND \(status = 'PENDING'`

	mock.ExpectQuery(claimSQL).
		WithArgs(id.String(), now, q.StaleBefore, q.RetryLimit, q.RetryBefore).
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(1))

	retries, ok, err := repo.Claim(context.Background(), id, q, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, retries)

	mock.ExpectQuery(claimSQL).WillReturnError(sql.ErrNoRows)

	_, ok, err = repo.Claim(context.Background(), id, q, now)
	require.NoError(t, err)
	assert.False(t, ok, "lost claim is not an error")

	mock.ExpectQuery(claimSQL).WillReturnError(errors.New("conn reset"))

	_, _, err = repo.Claim(context.Background(), id, q, now)
	require.ErrorContains(t, err, "db error: conn reset")
}

func TestReminderRepository_ClaimFailed_OnlyFailedRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	id, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE reminder_instances SET status = 'IN_PROGRESS'.* WHERE id = \$1 AND user_id = \$2 AND status = 'FAILED' RETURNING retry_count`).
		WithArgs(id.String(), userID.String(), now).
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))

	retries, ok, err := repo.ClaimFailed(context.Background(), id, userID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, retries)
}

func TestReminderRepository_Complete_WritesLogThenStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	instanceID := uuid.New()
	sentAt := time.Date(2025, 3, 7, 6, 0, 1, 0, time.UTC)
	claimedAt := time.Date(2025, 3, 7, 6, 0, 0, 0, time.UTC)

	log := &models.ReminderLog{
		ID:         uuid.New(),
		InstanceID: &instanceID,
		UserID:     uuid.New(),
		EventTitle: "Anniversary",
		EventDate:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		DaysBefore: 7,
		Channel:    models.NotifyEmail,
		Status:     models.LogFailed,
		SentAt:     sentAt,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reminder_logs`).WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reminder_instances SET status = \$2, retry_count = retry_count \+ \$3.* WHERE id = \$1 AND status = 'IN_PROGRESS' AND claimed_at = \$6`).
		WithArgs(instanceID.String(), "FAILED", 1, "smtp timeout", sentAt, claimedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	held, err := repo.Complete(context.Background(), instanceID, claimedAt, models.InstanceFailed, "smtp timeout", log)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestReminderRepository_Complete_LostClaimKeepsLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	instanceID := uuid.New()
	claimedAt := time.Date(2025, 3, 7, 6, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reminder_logs`).WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reminder_instances SET status`).
		WithArgs(instanceID.String(), "FAILED", 1, "timeout", sqlmock.AnyArg(), claimedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	held, err := repo.Complete(context.Background(), instanceID, claimedAt, models.InstanceFailed, "timeout",
		&models.ReminderLog{ID: uuid.New(), Status: models.LogFailed, SentAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, held, "a claim taken over by another run leaves the status alone")
}

func TestReminderRepository_Complete_LogFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reminder_logs`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), uuid.New(), time.Now(), models.InstanceSent, "", &models.ReminderLog{ID: uuid.New()})
	require.ErrorContains(t, err, "fk violation")
}

func TestReminderRepository_UpsertInstances_CountsInserted(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	e := sampleEvent()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reminder_instances`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reminder_instances`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := repo.UpsertInstances(context.Background(), []models.ReminderInstance{sampleInstance(e, 7), sampleInstance(e, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.UpsertInstances(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReminderRepository_GetContact_Defaults(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReminderRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT u.email, u.name, .* FROM users u LEFT JOIN reminder_settings s`).
		WithArgs(userID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name", "phone", "chat", "method"}).
			AddRow("kim@example.com", "Kim", "", nil, "EMAIL"))

	c, err := repo.GetContact(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifyEmail, c.Method)
	assert.Nil(t, c.TelegramChatID)

	mock.ExpectQuery(`FROM users u`).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetContact(context.Background(), userID)
	require.ErrorIs(t, err, common.ErrNotFound)
}
