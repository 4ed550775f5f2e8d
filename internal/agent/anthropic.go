package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicAgents backs all three capabilities with the Anthropic Messages API.
type AnthropicAgents struct {
	client *anthropic.Client
}

// NewAnthropicAgents creates the Anthropic-backed agent bundle.
func NewAnthropicAgents(apiKey string) (*AnthropicAgents, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	return &AnthropicAgents{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Name returns the provider name.
func (a *AnthropicAgents) Name() string {
	return "anthropic"
}

// Classify screens text for harmful content.
func (a *AnthropicAgents) Classify(ctx context.Context, text string) (Verdict, error) {
	raw, err := a.complete(ctx, fmt.Sprintf(classifyPrompt, text), 50)
	if err != nil {
		return Verdict{}, err
	}
	var res classifyResult
	if err := decodeJSONResponse(raw, &res); err != nil {
		return Verdict{}, err
	}
	return Verdict{Harmful: res.Harmful}, nil
}

// Normalize rewrites a user message into calm I-statements.
func (a *AnthropicAgents) Normalize(ctx context.Context, rawText, senderName string) (Normalization, error) {
	raw, err := a.complete(ctx, fmt.Sprintf(normalizePrompt, senderName, rawText), 500)
	if err != nil {
		return Normalization{}, err
	}
	var res normalizeResult
	if err := decodeJSONResponse(raw, &res); err != nil {
		return Normalization{}, err
	}
	n := Normalization{
		ProcessedText:   res.ProcessedContent,
		MediatorSummary: res.MediatorSummary,
		RedFlagged:      res.IsRedFlagged,
	}
	if n.ProcessedText == "" {
		n.ProcessedText = rawText
	}
	if n.MediatorSummary == "" {
		n.MediatorSummary = truncate(rawText, 100)
	}
	return n, nil
}

// Generate produces a proposal draft from both partners' concerns.
func (a *AnthropicAgents) Generate(ctx context.Context, in GenerateInput) (Draft, error) {
	raw, err := a.complete(ctx, buildGeneratePrompt(in), 800)
	if err != nil {
		return Draft{}, err
	}
	var res generateResult
	if err := decodeJSONResponse(raw, &res); err != nil {
		return Draft{}, err
	}
	if res.Content == "" {
		return Draft{}, errors.New("generator returned empty content")
	}
	return Draft{Content: res.Content, Score: res.Score, Compromise: in.Attempt > 3}, nil
}

func (a *AnthropicAgents) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(anthropicModel),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages: anthropic.F([]anthropic.MessageParam{
			{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(prompt),
					},
				}),
			},
		}),
	})
	if err != nil {
		return "", err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	if content == "" {
		return "", errors.New("no content blocks returned")
	}
	return content, nil
}
