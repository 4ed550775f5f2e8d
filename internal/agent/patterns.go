package agent

import (
	"context"
	"regexp"
)

// PatternClassifier is a local heuristic safety classifier. It is fully
// deterministic, needs no network, and serves both as the default safety
// backend and as the fallback when no model provider is configured.
type PatternClassifier struct {
	patterns []*regexp.Regexp
}

var defaultHarmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|murder|hurt|harm|abuse|threat|threaten)\b`),
	regexp.MustCompile(`(?i)\b(stupid|idiot|worthless|useless)\b`),
	regexp.MustCompile(`(?i)\byou('ll| will) (regret|pay|be sorry)\b`),
}

// NewPatternClassifier creates a classifier with the default pattern set.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{patterns: defaultHarmfulPatterns}
}

// Classify checks text against the harmful pattern list.
func (c *PatternClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	for _, p := range c.patterns {
		if p.MatchString(text) {
			return Verdict{Harmful: true}, nil
		}
	}
	return Verdict{}, nil
}
