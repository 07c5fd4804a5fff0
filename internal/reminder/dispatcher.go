package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/notify"
)

// Store is the persistence the dispatcher needs. It is implemented by
// repository.ReminderRepository.
type Store interface {
	ListTrackedEvents(ctx context.Context) ([]*models.Event, error)
	UpsertInstances(ctx context.Context, instances []models.ReminderInstance) (int, error)
	ListDue(ctx context.Context, q models.DueQuery) ([]*models.DueReminder, error)
	GetDue(ctx context.Context, instanceID, userID uuid.UUID) (*models.DueReminder, error)
	Claim(ctx context.Context, instanceID uuid.UUID, q models.DueQuery, now time.Time) (int, bool, error)
	ClaimFailed(ctx context.Context, instanceID, userID uuid.UUID, now time.Time) (int, bool, error)
	Complete(ctx context.Context, instanceID uuid.UUID, claimedAt time.Time, status models.InstanceStatus, lastError string, log *models.ReminderLog) (bool, error)
	InsertLog(ctx context.Context, log *models.ReminderLog) error
	GetLog(ctx context.Context, logID, userID uuid.UUID) (*models.ReminderLog, error)
	GetEvent(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error)
	GetContact(ctx context.Context, userID uuid.UUID) (*models.Contact, error)
}

type Config struct {
	ClaimTimeout   time.Duration // IN_PROGRESS claims older than this are taken over
	NotifyTimeout  time.Duration
	Workers        int
	AutoRetryLimit int // FAILED instances are retried automatically below this many failures
}

func DefaultConfig() Config {
	return Config{
		ClaimTimeout:   15 * time.Minute,
		NotifyTimeout:  30 * time.Second,
		Workers:        4,
		AutoRetryLimit: 3,
	}
}

// RunSummary reports what one RunDue pass did.
type RunSummary struct {
	AsOf         time.Time `json:"as_of"`
	Materialized int       `json:"materialized"`
	Due          int       `json:"due"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"` // claimed by someone else
	Errors       int       `json:"errors"`  // claim or bookkeeping errors
}

// Dispatcher delivers due reminder instances through a notifier and records
// every attempt.
type Dispatcher struct {
	store    Store
	notifier notify.Notifier
	clock    clock.Clock
	loc      *time.Location
	log      logging.Logger
	cfg      Config
}

func NewDispatcher(store Store, notifier notify.Notifier, c clock.Clock, loc *time.Location, log logging.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = def.ClaimTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.AutoRetryLimit < 0 {
		cfg.AutoRetryLimit = 0
	}
	if c == nil {
		c = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{store: store, notifier: notifier, clock: c, loc: loc, log: log, cfg: cfg}
}

// Today is the current calendar date in the dispatcher's location.
func (d *Dispatcher) Today() time.Time {
	return clock.Today(d.clock, d.loc)
}

// Materialize inserts the instances of every tracked event that do not
// exist yet. A failing event is logged and skipped.
func (d *Dispatcher) Materialize(ctx context.Context, asOf time.Time) (int, error) {
	events, err := d.store.ListTrackedEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tracked events: %w", err)
	}

	now := d.clock.Now()
	var added int
	for _, e := range events {
		n, err := d.store.UpsertInstances(ctx, Schedule(e, asOf, now))
		if err != nil {
			d.log.Error(ctx, "materialize event failed", "event_id", e.ID, "error", err)
			continue
		}
		added += n
	}
	return added, nil
}

// RunDue materializes schedules and delivers every instance that is due as
// of asOf. Per-instance failures are recorded and never abort the run.
func (d *Dispatcher) RunDue(ctx context.Context, asOf time.Time) (RunSummary, error) {
	ctx = logging.ContextWith(ctx, "run_id", uuid.NewString())
	start := d.clock.Now()
	summary := RunSummary{AsOf: asOf}

	added, err := d.Materialize(ctx, asOf)
	if err != nil {
		return summary, err
	}
	summary.Materialized = added

	q := models.DueQuery{
		AsOf:        asOf,
		StaleBefore: start.Add(-d.cfg.ClaimTimeout),
		RetryBefore: start,
		RetryLimit:  d.cfg.AutoRetryLimit,
	}
	due, err := d.store.ListDue(ctx, q)
	if err != nil {
		return summary, fmt.Errorf("list due reminders: %w", err)
	}
	summary.Due = len(due)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	for _, item := range due {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := d.process(ctx, q, item)
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case outcomeSent:
				summary.Sent++
			case outcomeFailed:
				summary.Failed++
			case outcomeSkipped:
				summary.Skipped++
			default:
				summary.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()

	d.log.Info(ctx, "reminder run finished",
		"as_of", asOf.Format(dday.DateLayout),
		"materialized", summary.Materialized,
		"due", summary.Due,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
		"duration", time.Since(start),
	)
	return summary, ctx.Err()
}

type outcome int

const (
	outcomeError outcome = iota
	outcomeSent
	outcomeFailed
	outcomeSkipped
)

func (d *Dispatcher) process(ctx context.Context, q models.DueQuery, due *models.DueReminder) outcome {
	inst := due.Instance
	log := d.log.With("instance_id", inst.ID, "event_id", inst.EventID, "offset", inst.OffsetDays)

	claimedAt := d.claimTime()
	retries, ok, err := d.store.Claim(ctx, inst.ID, q, claimedAt)
	if err != nil {
		log.Error(ctx, "claim failed", "error", err)
		return outcomeError
	}
	if !ok {
		log.Debug(ctx, "instance claimed elsewhere")
		return outcomeSkipped
	}

	entry, held, err := d.attempt(ctx, due, retries, claimedAt)
	if err != nil {
		log.Error(ctx, "record attempt failed", "error", err)
		return outcomeError
	}
	if !held {
		log.Warn(ctx, "claim taken over before completion", "status", entry.Status, "error", entry.ErrorMessage)
		return outcomeSkipped
	}
	if entry.Status == models.LogFailed {
		log.Warn(ctx, "reminder delivery failed", "retry_count", retries, "error", entry.ErrorMessage)
		return outcomeFailed
	}
	log.Info(ctx, "reminder sent", "retry_count", retries)
	return outcomeSent
}

// claimTime is the claim token. It is truncated to the precision of the
// claimed_at column so the completing update can match it exactly.
func (d *Dispatcher) claimTime() time.Time {
	return d.clock.Now().UTC().Truncate(time.Microsecond)
}

// attempt sends a claimed instance and records the log row together with
// the final status. held is false when the claim was taken over while
// sending; the log row is written but the status belongs to the new owner.
func (d *Dispatcher) attempt(ctx context.Context, due *models.DueReminder, retries int, claimedAt time.Time) (*models.ReminderLog, bool, error) {
	inst := due.Instance
	msg := notify.Message{
		Contact:       due.Contact,
		RecipientName: due.RecipientName,
		EventTitle:    due.EventTitle,
		EventDate:     inst.OccurrenceDate,
		DaysBefore:    inst.OffsetDays,
	}
	sendErr := d.send(ctx, msg)

	entry := &models.ReminderLog{
		ID:            uuid.New(),
		InstanceID:    &inst.ID,
		EventID:       &inst.EventID,
		UserID:        inst.UserID,
		RecipientName: due.RecipientName,
		EventTitle:    due.EventTitle,
		EventDate:     inst.OccurrenceDate,
		DaysBefore:    inst.OffsetDays,
		Channel:       channelOf(due.Contact),
		Status:        models.LogSuccess,
		RetryCount:    retries,
		SentAt:        d.clock.Now(),
	}
	status := models.InstanceSent
	if sendErr != nil {
		entry.Status = models.LogFailed
		entry.ErrorMessage = sendErr.Error()
		status = models.InstanceFailed
	}

	// The outcome is recorded even when the run is being cancelled.
	held, err := d.store.Complete(context.WithoutCancel(ctx), inst.ID, claimedAt, status, entry.ErrorMessage, entry)
	if err != nil {
		return nil, false, err
	}
	return entry, held, nil
}

func (d *Dispatcher) send(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.NotifyTimeout)
	defer cancel()
	return d.notifier.Notify(ctx, msg)
}

// Retry re-sends the instance behind a log row of the user.
func (d *Dispatcher) Retry(ctx context.Context, userID, logID uuid.UUID) (*models.ReminderLog, error) {
	entry, err := d.store.GetLog(ctx, logID, userID)
	if err != nil {
		return nil, err
	}
	if entry.InstanceID == nil {
		return nil, fmt.Errorf("%w: log entry has no retriable reminder", common.ErrConflict)
	}
	return d.RetryInstance(ctx, userID, *entry.InstanceID)
}

// RetryInstance re-sends one FAILED instance of the user. SENT and not yet
// attempted instances are rejected with ErrConflict.
func (d *Dispatcher) RetryInstance(ctx context.Context, userID, instanceID uuid.UUID) (*models.ReminderLog, error) {
	due, err := d.store.GetDue(ctx, instanceID, userID)
	if err != nil {
		return nil, err
	}

	switch due.Instance.Status {
	case models.InstanceSent:
		return nil, fmt.Errorf("%w: reminder was already sent", common.ErrConflict)
	case models.InstancePending, models.InstanceInProgress:
		return nil, fmt.Errorf("%w: reminder has not failed", common.ErrConflict)
	}

	claimedAt := d.claimTime()
	retries, ok, err := d.store.ClaimFailed(ctx, instanceID, userID, claimedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: reminder is being processed", common.ErrConflict)
	}

	entry, held, err := d.attempt(ctx, due, retries, claimedAt)
	if err != nil {
		return nil, err
	}
	if !held {
		d.log.Warn(ctx, "manual retry lost its claim", "instance_id", instanceID)
	}
	d.log.Info(ctx, "manual retry finished", "instance_id", instanceID, "status", entry.Status, "retry_count", retries)
	return entry, nil
}

// SendImmediate delivers a reminder for the next occurrence of an event
// right away. The attempt is logged without an instance so the regular
// schedule is unaffected.
func (d *Dispatcher) SendImmediate(ctx context.Context, userID, eventID uuid.UUID) (*models.ReminderLog, error) {
	e, err := d.store.GetEvent(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	contact, err := d.store.GetContact(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := d.Today()
	next := e.NextOccurrence(today)
	days := dday.DaysUntil(next, today)
	if days < 0 {
		return nil, fmt.Errorf("%w: event has already passed", common.ErrValidation)
	}

	sendErr := d.send(ctx, notify.Message{
		Contact:       *contact,
		RecipientName: e.RecipientName,
		EventTitle:    e.Title,
		EventDate:     next,
		DaysBefore:    days,
	})

	entry := &models.ReminderLog{
		ID:            uuid.New(),
		EventID:       &e.ID,
		UserID:        userID,
		RecipientName: e.RecipientName,
		EventTitle:    e.Title,
		EventDate:     next,
		DaysBefore:    days,
		Channel:       channelOf(*contact),
		Status:        models.LogSuccess,
		SentAt:        d.clock.Now(),
	}
	if sendErr != nil {
		entry.Status = models.LogFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if err := d.store.InsertLog(context.WithoutCancel(ctx), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func channelOf(c models.Contact) models.NotificationMethod {
	if c.Method == "" {
		return models.NotifyEmail
	}
	return c.Method
}
