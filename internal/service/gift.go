package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/clock"
	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/storage"
)

type GiftStore interface {
	Create(ctx context.Context, g *models.Gift) error
	CreateFromSuggestion(ctx context.Context, g *models.Gift) (*models.Gift, bool, error)
	GetByID(ctx context.Context, giftID, userID uuid.UUID) (*models.Gift, error)
	Update(ctx context.Context, g *models.Gift) error
	Delete(ctx context.Context, giftID, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, q models.GiftQuery) (*models.Page[*models.Gift], error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Gift, error)
}

// EventLookup resolves an event owned by a user.
type EventLookup interface {
	GetByID(ctx context.Context, eventID, userID uuid.UUID) (*models.Event, error)
}

// ImageStore presigns gift image transfers. It is implemented by
// storage.ImageStore.
type ImageStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (*storage.Upload, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type GiftInput struct {
	EventID     *uuid.UUID          `json:"event_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    models.GiftCategory `json:"category"`
	Price       *int64              `json:"price"`
	URL         string              `json:"url"`
	IsPurchased bool                `json:"is_purchased"`
}

// GiftView is a gift with a short-lived download link for its image.
type GiftView struct {
	*models.Gift
	ImageURL string `json:"image_url,omitempty"`
}

type GiftService struct {
	gifts  GiftStore
	events EventLookup
	images ImageStore
	clock  clock.Clock
	log    logging.Logger
}

// NewGiftService builds the service. images may be nil when object storage
// is not configured; image operations then fail with ErrExternalService.
func NewGiftService(gifts GiftStore, events EventLookup, images ImageStore, c clock.Clock, log logging.Logger) *GiftService {
	return &GiftService{gifts: gifts, events: events, images: images, clock: c, log: log}
}

func (s *GiftService) applyInput(ctx context.Context, userID uuid.UUID, g *models.Gift, in GiftInput) error {
	name, err := requireText("name", in.Name, maxNameLen)
	if err != nil {
		return err
	}
	desc, err := optionalText("description", in.Description, maxMemoLen)
	if err != nil {
		return err
	}
	link, err := optionalText("url", in.URL, maxURLLen)
	if err != nil {
		return err
	}
	if in.Category == "" {
		in.Category = models.GiftOther
	}
	if !in.Category.Valid() {
		return invalid("unknown category %q", in.Category)
	}
	if in.Price != nil && *in.Price < 0 {
		return invalid("price must not be negative")
	}
	if in.EventID != nil {
		if _, err := s.events.GetByID(ctx, *in.EventID, userID); err != nil {
			return err
		}
	}

	g.EventID = in.EventID
	g.Name = name
	g.Description = desc
	g.Category = in.Category
	g.Price = in.Price
	g.URL = link
	g.IsPurchased = in.IsPurchased
	return nil
}

func (s *GiftService) Create(ctx context.Context, userID uuid.UUID, in GiftInput) (*GiftView, error) {
	now := s.clock.Now()
	g := &models.Gift{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.applyInput(ctx, userID, g, in); err != nil {
		return nil, err
	}
	if err := s.gifts.Create(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "gift created", "gift_id", g.ID, "user_id", userID)
	return &GiftView{Gift: g}, nil
}

func (s *GiftService) Get(ctx context.Context, userID, giftID uuid.UUID) (*GiftView, error) {
	g, err := s.gifts.GetByID(ctx, giftID, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, g), nil
}

func (s *GiftService) Update(ctx context.Context, userID, giftID uuid.UUID, in GiftInput) (*GiftView, error) {
	g, err := s.gifts.GetByID(ctx, giftID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(ctx, userID, g, in); err != nil {
		return nil, err
	}
	g.UpdatedAt = s.clock.Now()
	if err := s.gifts.Update(ctx, g); err != nil {
		return nil, err
	}
	return s.view(ctx, g), nil
}

func (s *GiftService) SetPurchased(ctx context.Context, userID, giftID uuid.UUID, purchased bool) (*GiftView, error) {
	g, err := s.gifts.GetByID(ctx, giftID, userID)
	if err != nil {
		return nil, err
	}
	g.IsPurchased = purchased
	g.UpdatedAt = s.clock.Now()
	if err := s.gifts.Update(ctx, g); err != nil {
		return nil, err
	}
	return s.view(ctx, g), nil
}

func (s *GiftService) Delete(ctx context.Context, userID, giftID uuid.UUID) error {
	if err := s.gifts.Delete(ctx, giftID, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "gift deleted", "gift_id", giftID, "user_id", userID)
	return nil
}

func (s *GiftService) List(ctx context.Context, userID uuid.UUID, q models.GiftQuery) (*models.Page[*models.Gift], error) {
	if q.Category != "" && !q.Category.Valid() {
		return nil, invalid("unknown category %q", q.Category)
	}
	q.PageRequest = q.PageRequest.Normalize()
	return s.gifts.List(ctx, userID, q)
}

// PresignImageUpload returns a URL the client can PUT the image to and
// records the object key on the gift.
func (s *GiftService) PresignImageUpload(ctx context.Context, userID, giftID uuid.UUID, contentType string) (*storage.Upload, error) {
	if s.images == nil {
		return nil, storage.ErrNotConfigured
	}
	g, err := s.gifts.GetByID(ctx, giftID, userID)
	if err != nil {
		return nil, err
	}
	key, err := storage.ImageKey(userID, giftID, contentType)
	if err != nil {
		return nil, err
	}
	upload, err := s.images.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	g.ImageKey = key
	g.UpdatedAt = s.clock.Now()
	if err := s.gifts.Update(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "gift image upload presigned", "gift_id", giftID, "key", key)
	return upload, nil
}

func (s *GiftService) view(ctx context.Context, g *models.Gift) *GiftView {
	v := &GiftView{Gift: g}
	if g.ImageKey == "" || s.images == nil {
		return v
	}
	url, err := s.images.PresignDownload(ctx, g.ImageKey)
	if err != nil {
		s.log.Warn(ctx, "failed to presign gift image", "gift_id", g.ID, "error", err)
		return v
	}
	v.ImageURL = url
	return v
}
