package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type GiftCategory string

const (
	GiftFlower      GiftCategory = "FLOWER"
	GiftJewelry     GiftCategory = "JEWELRY"
	GiftCosmetics   GiftCategory = "COSMETICS"
	GiftFashion     GiftCategory = "FASHION"
	GiftElectronics GiftCategory = "ELECTRONICS"
	GiftFood        GiftCategory = "FOOD"
	GiftExperience  GiftCategory = "EXPERIENCE"
	GiftBook        GiftCategory = "BOOK"
	GiftHobby       GiftCategory = "HOBBY"
	GiftOther       GiftCategory = "OTHER"
)

var giftCategories = []GiftCategory{
	GiftFlower, GiftJewelry, GiftCosmetics, GiftFashion, GiftElectronics,
	GiftFood, GiftExperience, GiftBook, GiftHobby, GiftOther,
}

func GiftCategories() []GiftCategory {
	return slices.Clone(giftCategories)
}

func (c GiftCategory) Valid() bool {
	return slices.Contains(giftCategories, c)
}

// ParseGiftCategory maps free text to a category, falling back to OTHER.
func ParseGiftCategory(s string) GiftCategory {
	c := GiftCategory(s)
	if c.Valid() {
		return c
	}
	return GiftOther
}

type Gift struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	EventID          *uuid.UUID   `json:"event_id"`
	RecommendationID *uuid.UUID   `json:"recommendation_id,omitempty"`
	SuggestionIndex  *int         `json:"suggestion_index,omitempty"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	Category         GiftCategory `json:"category"`
	Price            *int64       `json:"price"`
	URL              string       `json:"url"`
	ImageKey         string       `json:"image_key,omitempty"`
	IsPurchased      bool         `json:"is_purchased"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type GiftQuery struct {
	EventID   *uuid.UUID
	Category  GiftCategory
	Purchased *bool
	PageRequest
}
