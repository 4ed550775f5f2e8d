package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternClassifier(t *testing.T) {
	c := NewPatternClassifier()
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		harmful bool
	}{
		{"threat verb", "I will hurt you if this continues", true},
		{"insult", "you are so stupid about the schedule", true},
		{"veiled threat", "you'll regret bringing this up", true},
		{"veiled threat long form", "You will be sorry about this", true},
		{"case insensitive", "DON'T THREATEN ME", true},
		{"clean disagreement", "I disagree with the proposed pickup times", false},
		{"clean frustration", "I'm really frustrated about the holiday plan", false},
		{"substring not matched", "the skillful mediator helped us", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Classify(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.harmful, v.Harmful)
		})
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain", `{"harmful": true}`},
		{"fenced", "```json\n{\"harmful\": true}\n```"},
		{"fence without language", "```\n{\"harmful\": true}\n```"},
		{"leading prose", "Here is my assessment: {\"harmful\": true}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res classifyResult
			require.NoError(t, decodeJSONResponse(tt.raw, &res))
			assert.True(t, res.Harmful)
		})
	}

	var res classifyResult
	assert.Error(t, decodeJSONResponse("not json at all", &res))
}

func TestBuildGeneratePromptModes(t *testing.T) {
	solution := buildGeneratePrompt(GenerateInput{
		PartnerAConcerns: []string{"pickups are chaotic"},
		PartnerBConcerns: []string{"schedule changes too often"},
		Attempt:          1,
	})
	assert.Contains(t, solution, "SOLUTION MODE")
	assert.NotContains(t, solution, "COMPROMISE MODE")

	compromise := buildGeneratePrompt(GenerateInput{
		PartnerAConcerns:  []string{"pickups are chaotic"},
		PartnerBConcerns:  []string{"schedule changes too often"},
		PreviousProposals: []string{"v1", "v2", "v3"},
		Attempt:           4,
	})
	assert.Contains(t, compromise, "COMPROMISE MODE")
	assert.Contains(t, compromise, "Previous proposals that were rejected")
}
