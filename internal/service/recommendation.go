package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/ai"
	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
)

// ErrRecommendationFailed is all a caller learns when the AI call or its
// response was unusable. The cause is kept on the recommendation row.
var ErrRecommendationFailed = fmt.Errorf("%w: failed to generate recommendations", common.ErrExternalService)

const (
	maxAge       = 150
	priceMargin  = 0.3
	defaultAITTL = 60 * time.Second
)

type RecommendationStore interface {
	Create(ctx context.Context, rec *models.Recommendation) error
	Complete(ctx context.Context, recID uuid.UUID, suggestions []models.Suggestion, at time.Time) error
	Fail(ctx context.Context, recID uuid.UUID, reason string, at time.Time) error
	GetByID(ctx context.Context, recID, userID uuid.UUID) (*models.Recommendation, error)
	List(ctx context.Context, userID uuid.UUID, req models.PageRequest) (*models.Page[*models.Recommendation], error)
}

type RecommendationInput struct {
	EventID       *uuid.UUID            `json:"event_id"`
	Budget        int64                 `json:"budget"`
	Age           *int                  `json:"age"`
	Gender        string                `json:"gender"`
	Relationship  models.Relationship   `json:"relationship"`
	RecipientName string                `json:"recipient_name"`
	Categories    []models.GiftCategory `json:"preferred_categories"`
	Exclusions    string                `json:"exclusions"`
}

type RecommendationService struct {
	recs     RecommendationStore
	events   EventLookup
	gifts    GiftStore
	provider ai.Provider
	timeout  time.Duration
	clock    clock.Clock
	loc      *time.Location
	log      logging.Logger
}

// NewRecommendationService builds the service. provider may be nil when no
// AI backend is configured.
func NewRecommendationService(recs RecommendationStore, events EventLookup, gifts GiftStore, provider ai.Provider,
	timeout time.Duration, c clock.Clock, loc *time.Location, log logging.Logger) *RecommendationService {
	if timeout <= 0 {
		timeout = defaultAITTL
	}
	return &RecommendationService{
		recs:     recs,
		events:   events,
		gifts:    gifts,
		provider: provider,
		timeout:  timeout,
		clock:    c,
		loc:      loc,
		log:      log,
	}
}

func validateRecommendation(in *RecommendationInput) error {
	if in.Budget <= 0 {
		return invalid("budget must be positive")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > maxAge) {
		return invalid("age must be between 0 and %d", maxAge)
	}
	in.Gender = strings.ToUpper(strings.TrimSpace(in.Gender))
	if in.Gender != "" && in.Gender != "MALE" && in.Gender != "FEMALE" {
		return invalid("gender must be MALE or FEMALE")
	}
	if !in.Relationship.Valid() {
		return invalid("unknown relationship %q", in.Relationship)
	}
	for _, c := range in.Categories {
		if !c.Valid() {
			return invalid("unknown category %q", c)
		}
	}
	exclusions, err := optionalText("exclusions", in.Exclusions, maxMemoLen)
	if err != nil {
		return err
	}
	in.Exclusions = exclusions
	recipient, err := optionalText("recipient_name", in.RecipientName, maxRecipientLen)
	if err != nil {
		return err
	}
	in.RecipientName = recipient
	return nil
}

// Request asks the AI provider for gift ideas and stores the outcome. A
// FAILED row is kept for every unusable response.
func (s *RecommendationService) Request(ctx context.Context, userID uuid.UUID, in RecommendationInput) (*models.Recommendation, error) {
	if err := validateRecommendation(&in); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: recommendations are not configured", common.ErrExternalService)
	}

	now := s.clock.Now()
	rec := &models.Recommendation{
		ID:           uuid.New(),
		UserID:       userID,
		EventID:      in.EventID,
		Status:       models.RecommendationPending,
		Budget:       in.Budget,
		Age:          in.Age,
		Gender:       in.Gender,
		Relationship: in.Relationship,
		Categories:   models.Categories(slices.Clone(in.Categories)),
		Exclusions:   in.Exclusions,
		CreatedAt:    now,
	}
	req := ai.GiftRequest{
		RecipientName: in.RecipientName,
		Relationship:  in.Relationship,
		Age:           in.Age,
		Gender:        in.Gender,
		Budget:        in.Budget,
		Categories:    in.Categories,
		Exclusions:    in.Exclusions,
	}

	if in.EventID != nil {
		e, err := s.events.GetByID(ctx, *in.EventID, userID)
		if err != nil {
			return nil, err
		}
		today := clock.Today(s.clock, s.loc)
		next := e.NextOccurrence(today)
		days := dday.DaysUntil(next, today)

		rec.EventTitle = e.Title
		rec.EventType = e.EventType
		rec.EventDate = &next
		if rec.Relationship == "" {
			rec.Relationship = e.Relationship
		}

		req.EventTitle = e.Title
		req.EventType = e.EventType
		req.EventDate = &next
		req.DaysUntil = &days
		req.Relationship = rec.Relationship
		if req.RecipientName == "" {
			req.RecipientName = e.RecipientName
		}
	}

	if err := s.recs.Create(ctx, rec); err != nil {
		return nil, err
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.timeout)
	suggestions, err := s.provider.SuggestGifts(aiCtx, req)
	cancel()
	if err == nil && len(suggestions) == 0 {
		err = errors.New("empty suggestion list")
	}
	if err != nil {
		s.fail(ctx, rec, err)
		return nil, ErrRecommendationFailed
	}

	completedAt := s.clock.Now()
	if err := s.recs.Complete(context.WithoutCancel(ctx), rec.ID, suggestions, completedAt); err != nil {
		return nil, err
	}
	rec.Status = models.RecommendationCompleted
	rec.CompletedAt = &completedAt
	rec.Suggestions = suggestions

	s.log.Info(ctx, "recommendation completed", "recommendation_id", rec.ID, "provider", s.provider.Name(),
		"suggestions", len(suggestions))

	if err := s.markSaved(ctx, userID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecommendationService) fail(ctx context.Context, rec *models.Recommendation, cause error) {
	s.log.Warn(ctx, "recommendation failed", "recommendation_id", rec.ID, "provider", s.provider.Name(), "error", cause)
	if err := s.recs.Fail(context.WithoutCancel(ctx), rec.ID, cause.Error(), s.clock.Now()); err != nil {
		s.log.Error(ctx, "failed to mark recommendation failed", "recommendation_id", rec.ID, "error", err)
	}
}

func (s *RecommendationService) Get(ctx context.Context, userID, recID uuid.UUID) (*models.Recommendation, error) {
	rec, err := s.recs.GetByID(ctx, recID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.markSaved(ctx, userID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecommendationService) List(ctx context.Context, userID uuid.UUID, req models.PageRequest) (*models.Page[*models.Recommendation], error) {
	return s.recs.List(ctx, userID, req.Normalize())
}

// SaveSuggestion copies one suggestion into the gift list. Saving the same
// suggestion again returns the gift created the first time.
func (s *RecommendationService) SaveSuggestion(ctx context.Context, userID, recID uuid.UUID, index int) (*models.Gift, bool, error) {
	rec, err := s.recs.GetByID(ctx, recID, userID)
	if err != nil {
		return nil, false, err
	}
	if rec.Status != models.RecommendationCompleted {
		return nil, false, fmt.Errorf("%w: recommendation is %s", common.ErrConflict, rec.Status)
	}
	i := slices.IndexFunc(rec.Suggestions, func(sg models.Suggestion) bool { return sg.Index == index })
	if i < 0 {
		return nil, false, fmt.Errorf("%w: suggestion %d", common.ErrNotFound, index)
	}
	sg := rec.Suggestions[i]

	now := s.clock.Now()
	price := sg.EstimatedPrice
	idx := sg.Index
	description := sg.Reason
	if description == "" {
		description = sg.Description
	}
	g := &models.Gift{
		ID:               uuid.New(),
		UserID:           userID,
		EventID:          rec.EventID,
		RecommendationID: &rec.ID,
		SuggestionIndex:  &idx,
		Name:             sg.Name,
		Description:      description,
		Category:         sg.Category,
		Price:            &price,
		URL:              sg.PurchaseURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	saved, created, err := s.gifts.CreateFromSuggestion(ctx, g)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info(ctx, "suggestion saved", "recommendation_id", recID, "index", index, "gift_id", saved.ID)
	}
	return saved, created, nil
}

// markSaved flags suggestions that look like gifts the user already has and
// moves them to the front.
func (s *RecommendationService) markSaved(ctx context.Context, userID uuid.UUID, rec *models.Recommendation) error {
	if len(rec.Suggestions) == 0 {
		return nil
	}
	gifts, err := s.gifts.ListAll(ctx, userID)
	if err != nil {
		return err
	}
	for i := range rec.Suggestions {
		rec.Suggestions[i].AlreadySaved = slices.ContainsFunc(gifts, func(g *models.Gift) bool {
			return similarGift(g, rec.Suggestions[i])
		})
	}
	slices.SortStableFunc(rec.Suggestions, func(a, b models.Suggestion) int {
		switch {
		case a.AlreadySaved == b.AlreadySaved:
			return 0
		case a.AlreadySaved:
			return -1
		default:
			return 1
		}
	})
	return nil
}

func similarGift(g *models.Gift, sg models.Suggestion) bool {
	gn := strings.ToLower(strings.TrimSpace(g.Name))
	sn := strings.ToLower(strings.TrimSpace(sg.Name))
	if gn != "" && sn != "" && (strings.Contains(gn, sn) || strings.Contains(sn, gn)) {
		return true
	}
	if g.Category != sg.Category || g.Price == nil || sg.EstimatedPrice <= 0 {
		return false
	}
	diff := float64(*g.Price - sg.EstimatedPrice)
	if diff < 0 {
		diff = -diff
	}
	return diff <= float64(sg.EstimatedPrice)*priceMargin
}
