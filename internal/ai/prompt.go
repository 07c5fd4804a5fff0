package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/models"
)

const suggestionCount = 5

// maxSuggestions bounds what is kept from a chatty model.
const maxSuggestions = 10

const systemPrompt = `You are a gift advisor with twenty years of experience.
You understand the situation of the giver and recommend gifts the recipient will truly enjoy.

Rules:
1. Consider the recipient's age, gender and relationship.
2. Stay within the budget and prefer good value.
3. Match the meaning of the occasion.
4. Balance practicality and sentiment.
5. Prefer the preferred categories when given.
6. Never recommend anything listed as excluded.
7. Each name must be exactly one concrete gift, never "A or B".
8. estimated_price is an estimate in whole currency units.

Reply with JSON only: {"suggestions": [{"name", "description", "reason", "estimated_price", "category", "purchase_url"}]}.
category is exactly one of: %s.`

// jsonSchema constrains structured output to the suggestion list.
var jsonSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "One concrete gift"},
					"description": {"type": "string", "description": "Two or three sentences about the gift"},
					"reason": {"type": "string", "description": "Why the recipient will like it"},
					"estimated_price": {"type": "integer", "minimum": 0},
					"category": {"type": "string", "enum": ["FLOWER", "JEWELRY", "COSMETICS", "FASHION", "ELECTRONICS", "FOOD", "EXPERIENCE", "BOOK", "HOBBY", "OTHER"]},
					"purchase_url": {"type": "string", "description": "Shop link or empty string"}
				},
				"required": ["name", "description", "reason", "estimated_price", "category", "purchase_url"],
				"additionalProperties": false
			}
		}
	},
	"required": ["suggestions"],
	"additionalProperties": false
}`)

func buildSystemPrompt() string {
	cats := make([]string, 0, len(models.GiftCategories()))
	for _, c := range models.GiftCategories() {
		cats = append(cats, string(c))
	}
	return fmt.Sprintf(systemPrompt, strings.Join(cats, ", "))
}

// buildUserPrompt renders the request as sections the model can follow.
func buildUserPrompt(req GiftRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Recommend the %d best gifts for this situation.\n", suggestionCount)

	if req.EventTitle != "" {
		b.WriteString("\n=== Event ===\n")
		fmt.Fprintf(&b, "Title: %s\n", req.EventTitle)
		if req.EventType != "" {
			fmt.Fprintf(&b, "Type: %s\n", req.EventType)
		}
		if req.EventDate != nil {
			fmt.Fprintf(&b, "Date: %s\n", req.EventDate.Format(dday.DateLayout))
		}
		if req.DaysUntil != nil {
			switch d := *req.DaysUntil; {
			case d > 0:
				fmt.Fprintf(&b, "%s (%d days left)\n", dday.Label(d), d)
			case d == 0:
				b.WriteString("The event is today!\n")
			default:
				fmt.Fprintf(&b, "The event passed %d days ago.\n", -d)
			}
		}
	}

	b.WriteString("\n=== Recipient ===\n")
	if req.RecipientName != "" {
		fmt.Fprintf(&b, "Name: %s\n", req.RecipientName)
	}
	if req.Relationship != "" {
		fmt.Fprintf(&b, "Relationship: %s\n", req.Relationship)
	}
	if req.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", req.Gender)
	}
	if req.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *req.Age)
	}

	b.WriteString("\n=== Budget ===\n")
	fmt.Fprintf(&b, "Budget: %d\n", req.Budget)

	if len(req.Categories) > 0 {
		cats := make([]string, len(req.Categories))
		for i, c := range req.Categories {
			cats[i] = string(c)
		}
		b.WriteString("\n=== Preferred categories ===\n")
		b.WriteString(strings.Join(cats, ", "))
		b.WriteString("\nPrefer gifts from these categories.\n")
	}

	if ex := strings.TrimSpace(req.Exclusions); ex != "" {
		b.WriteString("\n=== Exclusions and special requests ===\n")
		b.WriteString(ex)
		b.WriteString("\nDo not recommend anything excluded above.\n")
	}

	return b.String()
}

type suggestionPayload struct {
	Suggestions []struct {
		Name           string  `json:"name"`
		Description    string  `json:"description"`
		Reason         string  `json:"reason"`
		EstimatedPrice float64 `json:"estimated_price"`
		Category       string  `json:"category"`
		PurchaseURL    string  `json:"purchase_url"`
	} `json:"suggestions"`
}

// parseSuggestions decodes a model reply. Markdown fences and a bare array
// are tolerated; an empty list or a nameless entry is an error.
func parseSuggestions(content string) ([]models.Suggestion, error) {
	content = stripFences(content)

	var payload suggestionPayload
	if strings.HasPrefix(content, "[") {
		content = `{"suggestions":` + content + `}`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if len(payload.Suggestions) == 0 {
		return nil, fmt.Errorf("AI response has no suggestions")
	}

	out := make([]models.Suggestion, 0, min(len(payload.Suggestions), maxSuggestions))
	for _, s := range payload.Suggestions {
		if len(out) == maxSuggestions {
			break
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("AI suggestion %d has no name", len(out))
		}
		price := int64(s.EstimatedPrice)
		if price < 0 {
			price = 0
		}
		out = append(out, models.Suggestion{
			Index:          len(out),
			Name:           name,
			Description:    strings.TrimSpace(s.Description),
			Reason:         strings.TrimSpace(s.Reason),
			EstimatedPrice: price,
			Category:       models.ParseGiftCategory(strings.ToUpper(strings.TrimSpace(s.Category))),
			PurchaseURL:    strings.TrimSpace(s.PurchaseURL),
		})
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
