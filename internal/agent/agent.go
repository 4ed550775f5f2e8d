// Package agent defines the AI capability interfaces the workflow engine
// depends on, with pluggable model backends. The state machine never talks to
// a model provider directly.
package agent

import (
	"context"
	"errors"
)

// Verdict is the safety classifier's decision on a piece of text.
type Verdict struct {
	Harmful bool
}

// SafetyClassifier screens user-authored text before any other processing.
type SafetyClassifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

// Normalization is the personal agent's rewrite of a user message.
type Normalization struct {
	ProcessedText   string
	MediatorSummary string
	RedFlagged      bool
}

// PersonalAgent rewrites raw user text into calm first-person statements and
// produces a short summary for the mediator. It may independently red-flag
// content the upstream classifier missed.
type PersonalAgent interface {
	Normalize(ctx context.Context, rawText, senderName string) (Normalization, error)
}

// GenerateInput is the accumulated context for one mediator attempt.
type GenerateInput struct {
	PartnerAConcerns  []string
	PartnerBConcerns  []string
	PreviousProposals []string
	// Attempt is the 1-indexed version about to be created.
	Attempt int
}

// Draft is a candidate solution with the generator's readiness score.
type Draft struct {
	Content    string
	Score      float64
	Compromise bool
}

// MediatorAgent synthesizes both partners' concerns into a proposal draft.
type MediatorAgent interface {
	Generate(ctx context.Context, in GenerateInput) (Draft, error)
}

// Agents bundles the three capabilities of one backend.
type Agents interface {
	SafetyClassifier
	PersonalAgent
	MediatorAgent
	Name() string
}

// Provider is the type of model backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// New creates the agent bundle for a provider.
func New(provider Provider, apiKey string) (Agents, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicAgents(apiKey)
	case ProviderOpenAI:
		return NewOpenAIAgents(apiKey)
	default:
		return nil, errors.New("unknown agent provider: " + string(provider))
	}
}
