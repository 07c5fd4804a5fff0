package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runAt = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

func newDispatcher(store Store, n notify.Notifier, cfg Config) *Dispatcher {
	return NewDispatcher(store, n, clock.Fixed{T: runAt}, time.UTC, logging.Nop(), cfg)
}

func okNotifier(calls *atomic.Int32) notify.Notifier {
	return notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		calls.Add(1)
		return nil
	})
}

func TestRunDue_SevenDaysOut(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today.AddDate(0, 0, 7), false, 1, 7)
	store.addEvent(e)

	var got []int
	var mu sync.Mutex
	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.DaysBefore)
		assert.Equal(t, day(2025, 3, 14), msg.EventDate)
		return nil
	})
	d := newDispatcher(store, n, Config{})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Materialized)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []int{7}, got, "only the 7-day reminder triggers today")

	summary, err = d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, summary.Due, "a sent instance is never picked up again")

	_, err = d.RunDue(context.Background(), today.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1}, got)

	logs := store.snapshotLogs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, models.LogSuccess, l.Status)
		assert.Equal(t, "Birthday", l.EventTitle)
		assert.Zero(t, l.RetryCount)
	}
}

func TestRunDue_ConcurrentRunsSendOnce(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)

	var calls atomic.Int32
	release := make(chan struct{})
	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		calls.Add(1)
		<-release
		return nil
	})
	d := newDispatcher(store, n, Config{})

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.RunDue(context.Background(), today)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())

	inst := store.instance(e.ID, 0)
	require.NotNil(t, inst)
	assert.Equal(t, models.InstanceSent, inst.Status)

	logs := store.snapshotLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogSuccess, logs[0].Status)
}

func TestRunDue_OneTimeoutAmongFive(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)

	var slow uuid.UUID
	for i := range 5 {
		e := trackedEvent(today.AddDate(0, 0, 3), false, 3)
		if i == 2 {
			e.Title = "slow"
			slow = e.ID
		}
		store.addEvent(e)
	}

	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		if msg.EventTitle == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	d := newDispatcher(store, n, Config{NotifyTimeout: 20 * time.Millisecond, Workers: 2})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Due)
	assert.Equal(t, 4, summary.Sent)
	assert.Equal(t, 1, summary.Failed)

	var success, failed int
	for _, l := range store.snapshotLogs() {
		switch l.Status {
		case models.LogSuccess:
			success++
		case models.LogFailed:
			failed++
			assert.Equal(t, "slow", l.EventTitle)
			assert.Contains(t, l.ErrorMessage, "deadline exceeded")
		}
	}
	assert.Equal(t, 4, success)
	assert.Equal(t, 1, failed)

	inst := store.instance(slow, 3)
	require.NotNil(t, inst)
	assert.Equal(t, models.InstanceFailed, inst.Status)
	assert.Equal(t, 1, inst.RetryCount)
}

func TestRunDue_StaleClaimIsTakenOver(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)

	stale := runAt.Add(-time.Hour)
	fresh := runAt.Add(-time.Minute)
	other := trackedEvent(today, false, 0)
	store.addEvent(other)

	for _, inst := range append(Schedule(e, today, stale), Schedule(other, today, fresh)...) {
		claimedAt := inst.CreatedAt
		inst.Status = models.InstanceInProgress
		inst.ClaimedAt = &claimedAt
		_, err := store.UpsertInstances(context.Background(), []models.ReminderInstance{inst})
		require.NoError(t, err)
	}

	var calls atomic.Int32
	d := newDispatcher(store, okNotifier(&calls), Config{ClaimTimeout: 15 * time.Minute})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, models.InstanceSent, store.instance(e.ID, 0).Status)
	assert.Equal(t, models.InstanceInProgress, store.instance(other.ID, 0).Status, "live claim is left alone")
}

func TestRunDue_LateCompletionKeepsNewOwnersStatus(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)

	later := NewDispatcher(store, nil, clock.Fixed{T: runAt.Add(time.Hour)}, time.UTC, logging.Nop(),
		Config{ClaimTimeout: 15 * time.Minute})

	var calls atomic.Int32
	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		if calls.Add(1) > 1 {
			return nil
		}
		// The first send hangs past the claim timeout; a later run takes the
		// instance over and delivers it before this one gives up.
		summary, err := later.RunDue(context.Background(), today)
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Sent)
		return errors.New("smtp timeout")
	})
	later.notifier = n
	d := newDispatcher(store, n, Config{ClaimTimeout: 15 * time.Minute})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.EqualValues(t, 2, calls.Load())

	inst := store.instance(e.ID, 0)
	require.NotNil(t, inst)
	assert.Equal(t, models.InstanceSent, inst.Status)
	assert.Zero(t, inst.RetryCount)

	logs := store.snapshotLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogSuccess, logs[0].Status)
	assert.Equal(t, models.LogFailed, logs[1].Status)

	summary, err = d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, summary.Due, "a delivered instance is not retried")
	assert.EqualValues(t, 2, calls.Load())
}

func TestRunDue_AutoRetryRespectsLimit(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	earlier := runAt.Add(-24 * time.Hour)

	retriable := trackedEvent(today, false, 0)
	exhausted := trackedEvent(today, false, 0)
	store.addEvent(retriable)
	store.addEvent(exhausted)

	seed := func(e *models.Event, failures int) {
		inst := Schedule(e, today, earlier)[0]
		inst.Status = models.InstanceFailed
		inst.RetryCount = failures
		inst.ClaimedAt = &earlier
		_, err := store.UpsertInstances(context.Background(), []models.ReminderInstance{inst})
		require.NoError(t, err)
	}
	seed(retriable, 2)
	seed(exhausted, 3)

	var calls atomic.Int32
	d := newDispatcher(store, okNotifier(&calls), Config{AutoRetryLimit: 3})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.EqualValues(t, 1, calls.Load())

	logs := store.snapshotLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].RetryCount, "log records failures before the attempt")
	assert.Equal(t, models.InstanceFailed, store.instance(exhausted.ID, 0).Status)
}

func TestRunDue_FailedInThisRunIsNotRetriedImmediately(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	store.addEvent(trackedEvent(today, false, 0))

	var calls atomic.Int32
	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		calls.Add(1)
		return errors.New("smtp: 421 try later")
	})
	d := newDispatcher(store, n, Config{AutoRetryLimit: 5})

	_, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	_, err = d.RunDue(context.Background(), today)
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load(), "fixed clock: claim time is not before the next run start")
}

func TestRunDue_DisabledUserSkipped(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)
	store.disabled[e.UserID] = true

	var calls atomic.Int32
	d := newDispatcher(store, okNotifier(&calls), Config{})

	summary, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, summary.Due)
	assert.Zero(t, calls.Load())
}

func failingThenOK() (notify.Notifier, *atomic.Int32) {
	var calls atomic.Int32
	return notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		if calls.Add(1) == 1 {
			return errors.New("mailbox unavailable")
		}
		return nil
	}), &calls
}

func TestRetry_CreatesNewLogAndKeepsHistory(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)

	n, calls := failingThenOK()
	d := newDispatcher(store, n, Config{AutoRetryLimit: 0})

	_, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)

	logs := store.snapshotLogs()
	require.Len(t, logs, 1)
	failed := logs[0]
	require.Equal(t, models.LogFailed, failed.Status)

	entry, err := d.Retry(context.Background(), e.UserID, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogSuccess, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.NotEqual(t, failed.ID, entry.ID)
	assert.EqualValues(t, 2, calls.Load())

	logs = store.snapshotLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, failed, logs[0], "earlier attempt is untouched")
	assert.Equal(t, models.InstanceSent, store.instance(e.ID, 0).Status)

	_, err = d.Retry(context.Background(), e.UserID, failed.ID)
	require.ErrorIs(t, err, common.ErrConflict, "a sent instance is never re-sent")
	assert.EqualValues(t, 2, calls.Load())
}

func TestRetry_Guards(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(today, false, 0)
	store.addEvent(e)

	n, _ := failingThenOK()
	d := newDispatcher(store, n, Config{AutoRetryLimit: 0})
	_, err := d.RunDue(context.Background(), today)
	require.NoError(t, err)
	failed := store.snapshotLogs()[0]

	_, err = d.Retry(context.Background(), uuid.New(), failed.ID)
	require.ErrorIs(t, err, common.ErrNotFound, "another user's log is invisible")

	_, err = d.Retry(context.Background(), e.UserID, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)

	future := trackedEvent(today.AddDate(0, 0, 10), false, 1)
	future.UserID = e.UserID
	store.addEvent(future)
	_, err = d.Materialize(context.Background(), today)
	require.NoError(t, err)
	pending := store.instance(future.ID, 1)
	require.NotNil(t, pending)

	_, err = d.RetryInstance(context.Background(), e.UserID, pending.ID)
	require.ErrorIs(t, err, common.ErrConflict, "pending instances are not retried by hand")
}

func TestSendImmediate(t *testing.T) {
	store := newMemStore()
	today := day(2025, 3, 7)
	e := trackedEvent(day(1990, 3, 20), true, 7)
	e.RecipientName = "Dad"
	store.addEvent(e)

	var got notify.Message
	n := notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		got = msg
		return nil
	})
	d := newDispatcher(store, n, Config{})

	entry, err := d.SendImmediate(context.Background(), e.UserID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, got.DaysBefore)
	assert.Equal(t, today.AddDate(0, 0, 13), got.EventDate)
	assert.Equal(t, "Dad", got.RecipientName)

	assert.Nil(t, entry.InstanceID)
	require.NotNil(t, entry.EventID)
	assert.Equal(t, e.ID, *entry.EventID)
	assert.Equal(t, models.LogSuccess, entry.Status)
	assert.Len(t, store.snapshotLogs(), 1)

	_, err = d.SendImmediate(context.Background(), uuid.New(), e.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	past := trackedEvent(day(2025, 1, 1), false, 1)
	past.UserID = e.UserID
	store.addEvent(past)
	_, err = d.SendImmediate(context.Background(), e.UserID, past.ID)
	require.ErrorIs(t, err, common.ErrValidation)
}
