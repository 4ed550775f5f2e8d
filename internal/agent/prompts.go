package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const classifyPrompt = `You are a safety screener for a co-parenting communication app.
Decide whether the following message contains abusive language, threats,
harassment, or extreme hostility.

Message: %q

Respond in JSON format:
{"harmful": boolean}`

const normalizePrompt = `You are a Personal AI Agent helping a divorced co-parent communicate more effectively. Your role is to:

1. FIRST: Check for red flags (abusive language, threats, harassment, extreme hostility)
2. If red flags detected, return immediately with isRedFlagged: true
3. If safe, process the message by:
   - Filtering emotional language
   - Converting to calm I-statements
   - Focusing on facts and solutions
   - Maintaining the core concern

User: %s
Original message: %q

Respond in JSON format:
{
  "isRedFlagged": boolean,
  "processedContent": "calm, factual I-statement version",
  "mediatorSummary": "key points for mediator (2-3 sentences max)"
}`

const generatePrompt = `You are a Mediator AI specializing in co-parenting conflict resolution. Your role is to create practical, fair solutions.

PARTNER A CONCERNS:
%s

PARTNER B CONCERNS:
%s
%s
%s

Create a solution that:
1. Addresses both parties' core concerns
2. Is specific and actionable
3. Includes clear steps/protocols
4. Considers children's best interests
5. Is fair to both parties

Respond in JSON format:
{
  "content": "detailed solution proposal with specific steps",
  "score": 0.0-1.0 readiness score,
  "reasoning": "why this solution works for both parties"
}`

const compromiseInstruction = "COMPROMISE MODE: Previous proposals were rejected. Focus on finding middle ground that both parties can accept, even if not ideal."
const solutionInstruction = "SOLUTION MODE: Create an optimal solution that addresses both parties' core needs."

type classifyResult struct {
	Harmful bool `json:"harmful"`
}

type normalizeResult struct {
	IsRedFlagged     bool   `json:"isRedFlagged"`
	ProcessedContent string `json:"processedContent"`
	MediatorSummary  string `json:"mediatorSummary"`
}

type generateResult struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func buildGeneratePrompt(in GenerateInput) string {
	previous := ""
	if len(in.PreviousProposals) > 0 {
		previous = "\nPrevious proposals that were rejected:\n" + strings.Join(in.PreviousProposals, "\n---\n") + "\n"
	}
	mode := solutionInstruction
	if in.Attempt > 3 {
		mode = compromiseInstruction
	}
	return fmt.Sprintf(generatePrompt,
		strings.Join(in.PartnerAConcerns, "\n"),
		strings.Join(in.PartnerBConcerns, "\n"),
		previous, mode)
}

// decodeJSONResponse parses a model reply that should be a JSON object,
// tolerating markdown code fences around it.
func decodeJSONResponse(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start > 0 {
		s = s[start:]
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("malformed model response: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
