package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/ai"
	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/storage"
)

var (
	now   = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	today = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	fixed = clock.Fixed{T: now}
	nop   = logging.Nop()
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeEvents struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*models.Event
	instances map[uuid.UUID][]models.ReminderInstance
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[uuid.UUID]*models.Event{}, instances: map[uuid.UUID][]models.ReminderInstance{}}
}

func (f *fakeEvents) Create(_ context.Context, e *models.Event, instances []models.ReminderInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.events[e.ID] = &cp
	f.instances[e.ID] = slices.Clone(instances)
	return nil
}

func (f *fakeEvents) Update(_ context.Context, e *models.Event, instances []models.ReminderInstance, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.events[e.ID]
	if !ok || cur.UserID != e.UserID {
		return common.ErrNotFound
	}
	cp := *e
	f.events[e.ID] = &cp
	f.instances[e.ID] = slices.Clone(instances)
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, eventID, userID uuid.UUID) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok || e.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) ListByUser(_ context.Context, userID uuid.UUID, search string) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	search = strings.ToLower(search)
	var out []*models.Event
	for _, e := range f.events {
		if e.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.RecipientName+" "+e.Memo), search) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeEvents) Delete(_ context.Context, eventID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok || e.UserID != userID {
		return common.ErrNotFound
	}
	delete(f.events, eventID)
	delete(f.instances, eventID)
	return nil
}

type fakeSettings struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*models.ReminderSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: map[uuid.UUID]*models.ReminderSettings{}}
}

func (f *fakeSettings) GetOrCreate(_ context.Context, userID uuid.UUID, defaults models.Offsets) (*models.ReminderSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[userID]; ok {
		cp := *s
		return &cp, nil
	}
	s := models.NewDefaultReminderSettings(userID)
	if defaults != nil {
		s.DefaultOffsets = slices.Clone(defaults)
	}
	f.settings[userID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s *models.ReminderSettings) (*models.ReminderSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.settings[s.UserID] = &cp
	out := cp
	return &out, nil
}

type countingTrigger struct{ n int }

func (t *countingTrigger) Notify() { t.n++ }

type fakeGifts struct {
	mu    sync.Mutex
	gifts []*models.Gift
}

func (f *fakeGifts) Create(_ context.Context, g *models.Gift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.gifts = append(f.gifts, &cp)
	return nil
}

func (f *fakeGifts) CreateFromSuggestion(_ context.Context, g *models.Gift) (*models.Gift, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.gifts {
		if existing.RecommendationID != nil && *existing.RecommendationID == *g.RecommendationID &&
			*existing.SuggestionIndex == *g.SuggestionIndex {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *g
	f.gifts = append(f.gifts, &cp)
	out := cp
	return &out, true, nil
}

func (f *fakeGifts) find(giftID, userID uuid.UUID) int {
	return slices.IndexFunc(f.gifts, func(g *models.Gift) bool { return g.ID == giftID && g.UserID == userID })
}

func (f *fakeGifts) GetByID(_ context.Context, giftID, userID uuid.UUID) (*models.Gift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(giftID, userID)
	if i < 0 {
		return nil, common.ErrNotFound
	}
	cp := *f.gifts[i]
	return &cp, nil
}

func (f *fakeGifts) Update(_ context.Context, g *models.Gift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(g.ID, g.UserID)
	if i < 0 {
		return common.ErrNotFound
	}
	cp := *g
	f.gifts[i] = &cp
	return nil
}

func (f *fakeGifts) Delete(_ context.Context, giftID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(giftID, userID)
	if i < 0 {
		return common.ErrNotFound
	}
	f.gifts = slices.Delete(f.gifts, i, i+1)
	return nil
}

func (f *fakeGifts) List(ctx context.Context, userID uuid.UUID, q models.GiftQuery) (*models.Page[*models.Gift], error) {
	all, _ := f.ListAll(ctx, userID)
	all = slices.DeleteFunc(all, func(g *models.Gift) bool {
		return (q.Category != "" && g.Category != q.Category) ||
			(q.Purchased != nil && g.IsPurchased != *q.Purchased) ||
			(q.EventID != nil && (g.EventID == nil || *g.EventID != *q.EventID))
	})
	return models.Paginate(all, q.PageRequest), nil
}

func (f *fakeGifts) ListAll(_ context.Context, userID uuid.UUID) ([]*models.Gift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Gift
	for _, g := range f.gifts {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeImages struct {
	keys []string
}

func (f *fakeImages) PresignUpload(_ context.Context, key, contentType string) (*storage.Upload, error) {
	f.keys = append(f.keys, key)
	return &storage.Upload{Key: key, URL: "https://s3.local/" + key, Method: "PUT", ContentType: contentType}, nil
}

func (f *fakeImages) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://s3.local/" + key + "?signed", nil
}

type fakeRecs struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*models.Recommendation
}

func newFakeRecs() *fakeRecs {
	return &fakeRecs{recs: map[uuid.UUID]*models.Recommendation{}}
}

func (f *fakeRecs) Create(_ context.Context, rec *models.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeRecs) Complete(_ context.Context, recID uuid.UUID, suggestions []models.Suggestion, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.recs[recID]
	if rec == nil || rec.Status != models.RecommendationPending {
		return common.ErrConflict
	}
	rec.Status = models.RecommendationCompleted
	rec.Suggestions = slices.Clone(suggestions)
	rec.CompletedAt = &at
	return nil
}

func (f *fakeRecs) Fail(_ context.Context, recID uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.recs[recID]
	rec.Status = models.RecommendationFailed
	rec.FailureReason = reason
	rec.CompletedAt = &at
	return nil
}

func (f *fakeRecs) GetByID(_ context.Context, recID, userID uuid.UUID) (*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[recID]
	if !ok || rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *rec
	cp.Suggestions = slices.Clone(rec.Suggestions)
	return &cp, nil
}

func (f *fakeRecs) List(_ context.Context, userID uuid.UUID, req models.PageRequest) (*models.Page[*models.Recommendation], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Recommendation
	for _, rec := range f.recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return models.Paginate(out, req), nil
}

type fakeProvider struct {
	suggestions []models.Suggestion
	err         error
	got         ai.GiftRequest
	calls       int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) SuggestGifts(ctx context.Context, req ai.GiftRequest) ([]models.Suggestion, error) {
	p.calls++
	p.got = req
	if _, ok := ctx.Deadline(); !ok {
		panic("AI call without deadline")
	}
	return slices.Clone(p.suggestions), p.err
}
