package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const openAIModel = "gpt-4o"

// OpenAIAgents backs all three capabilities with the OpenAI chat API.
type OpenAIAgents struct {
	client *openai.Client
}

// NewOpenAIAgents creates the OpenAI-backed agent bundle.
func NewOpenAIAgents(apiKey string) (*OpenAIAgents, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIAgents{client: openai.NewClient(apiKey)}, nil
}

// Name returns the provider name.
func (a *OpenAIAgents) Name() string {
	return "openai"
}

// Classify screens text for harmful content.
func (a *OpenAIAgents) Classify(ctx context.Context, text string) (Verdict, error) {
	raw, err := a.complete(ctx, fmt.Sprintf(classifyPrompt, text), 0.0, 50)
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
func (a *OpenAIAgents) Normalize(ctx context.Context, rawText, senderName string) (Normalization, error) {
	raw, err := a.complete(ctx, fmt.Sprintf(normalizePrompt, senderName, rawText), 0.3, 500)
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
func (a *OpenAIAgents) Generate(ctx context.Context, in GenerateInput) (Draft, error) {
	temperature := float32(0.3)
	compromise := in.Attempt > 3
	if compromise {
		temperature = 0.7
	}

	raw, err := a.complete(ctx, buildGeneratePrompt(in), temperature, 800)
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
	return Draft{Content: res.Content, Score: res.Score, Compromise: compromise}, nil
}

func (a *OpenAIAgents) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
