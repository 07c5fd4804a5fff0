// Package ai asks a language model for gift suggestions.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/daymemory/internal/models"
)

// GiftRequest describes who the gift is for.
type GiftRequest struct {
	EventTitle    string
	EventType     models.EventType
	EventDate     *time.Time
	DaysUntil     *int
	RecipientName string
	Relationship  models.Relationship
	Age           *int
	Gender        string
	Budget        int64
	Categories    []models.GiftCategory
	Exclusions    string
}

// Provider returns parsed, validated suggestions for a request.
type Provider interface {
	SuggestGifts(ctx context.Context, req GiftRequest) ([]models.Suggestion, error)
	Name() string
}

type Config struct {
	Provider string // "openai" or "deepseek"
	APIKey   string
	BaseURL  string
	Model    string
}

// New builds the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "deepseek":
		return NewDeepSeek(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
