package ai

import (
	"context"
	"fmt"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	"github.com/hray3182/daymemory/internal/models"
)

// DeepSeek uses the DeepSeek chat API. It has no schema-constrained output,
// so the reply is parsed leniently.
type DeepSeek struct {
	model    string
	complete func(ctx context.Context, system, user string) (string, error)
}

func NewDeepSeek(apiKey, model string) (*DeepSeek, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required")
	}
	if model == "" {
		model = "deepseek-chat"
	}

	client, err := deepseek.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}

	p := &DeepSeek{model: model}
	p.complete = func(ctx context.Context, system, user string) (string, error) {
		temp := float32(0.7)
		resp, err := client.CallChatCompletionsChat(ctx, &request.ChatCompletionsRequest{
			Model: p.model,
			Messages: []*request.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: &temp,
			Stream:      false,
		})
		if err != nil {
			return "", fmt.Errorf("DeepSeek API request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from AI")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return p, nil
}

func (p *DeepSeek) Name() string { return "deepseek" }

func (p *DeepSeek) SuggestGifts(ctx context.Context, req GiftRequest) ([]models.Suggestion, error) {
	content, err := p.complete(ctx, buildSystemPrompt(), buildUserPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseSuggestions(content)
}
