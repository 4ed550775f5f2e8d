package model

import (
	"time"
)

// IssueStatus is the lifecycle state of an issue.
type IssueStatus string

const (
	IssueInProgress   IssueStatus = "in_progress"
	IssueProposalSent IssueStatus = "proposal_sent"
	IssueResolved     IssueStatus = "resolved"
	IssueHalted       IssueStatus = "halted"
)

// Terminal reports whether no further mutation of the issue is permitted.
func (s IssueStatus) Terminal() bool {
	return s == IssueResolved || s == IssueHalted
}

// Active reports whether the issue counts against the one-active-issue-per-pair
// limit.
func (s IssueStatus) Active() bool {
	return s == IssueInProgress || s == IssueProposalSent
}

// Workflow tuning constants. These are the product defaults; the mediator
// knobs can be overridden through configuration.
const (
	MaxMessageLength        = 500
	MaxProposalAttempts     = 5
	MediatorScoreThreshold  = 0.8
	MediatorTriggerEvery    = 3
	MediatorCompromiseAfter = 3
)

// Issue is one conflict-resolution thread between two paired partners.
type Issue struct {
	ID         string      `json:"id"`
	PartnerAID string      `json:"partner_a_id"`
	PartnerBID string      `json:"partner_b_id"`
	Status     IssueStatus `json:"status"`
	Summary    string      `json:"summary"`
	RedFlagged bool        `json:"red_flagged"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// Participant reports whether userID is one of the issue's two partners.
func (i *Issue) Participant(userID string) bool {
	return i.PartnerAID == userID || i.PartnerBID == userID
}

// OtherPartner returns the partner that is not userID.
func (i *Issue) OtherPartner(userID string) string {
	if i.PartnerAID == userID {
		return i.PartnerBID
	}
	return i.PartnerAID
}

// CreateIssueRequest is the request to start a new issue.
type CreateIssueRequest struct {
	Title string `json:"title,omitempty"`
}
