package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecommendationStatus string

const (
	RecommendationPending   RecommendationStatus = "PENDING"
	RecommendationCompleted RecommendationStatus = "COMPLETED"
	RecommendationFailed    RecommendationStatus = "FAILED"
)

// Categories is a list of gift categories stored as a JSON array.
type Categories []GiftCategory

func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]GiftCategory(c))
}

func (c *Categories) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Categories{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("categories: unsupported type %T", src)
	}
	var out []GiftCategory
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = []GiftCategory{}
	}
	*c = out
	return nil
}

type Recommendation struct {
	ID            uuid.UUID            `json:"id"`
	UserID        uuid.UUID            `json:"user_id"`
	EventID       *uuid.UUID           `json:"event_id"`
	Status        RecommendationStatus `json:"status"`
	Budget        int64                `json:"budget"`
	Age           *int                 `json:"age,omitempty"`
	Gender        string               `json:"gender,omitempty"`
	Relationship  Relationship         `json:"relationship,omitempty"`
	Categories    Categories           `json:"preferred_categories"`
	Exclusions    string               `json:"exclusions,omitempty"`
	EventTitle    string               `json:"event_title"`
	EventType     EventType            `json:"event_type"`
	EventDate     *time.Time           `json:"event_date,omitempty"`
	FailureReason string               `json:"-"`
	Suggestions   []Suggestion         `json:"suggestions"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// Suggestion is one AI gift idea attached to a recommendation.
type Suggestion struct {
	Index          int          `json:"index"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Reason         string       `json:"reason"`
	EstimatedPrice int64        `json:"estimated_price"`
	Category       GiftCategory `json:"category"`
	PurchaseURL    string       `json:"purchase_url,omitempty"`
	AlreadySaved   bool         `json:"already_saved"`
}
