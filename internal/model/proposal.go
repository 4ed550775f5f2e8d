package model

import (
	"time"
)

// Vote is a partner's decision on a proposal. The zero value means the
// partner has not voted yet; "hasn't voted" is never conflated with
// "rejected".
type Vote int

const (
	VoteNone Vote = iota
	VoteAccepted
	VoteRejected
)

// Cast reports whether the vote has been set.
func (v Vote) Cast() bool { return v != VoteNone }

func (v Vote) String() string {
	switch v {
	case VoteAccepted:
		return "accepted"
	case VoteRejected:
		return "rejected"
	default:
		return "none"
	}
}

// MarshalJSON encodes the tri-state as null/true/false to match the wire
// format the client expects.
func (v Vote) MarshalJSON() ([]byte, error) {
	switch v {
	case VoteAccepted:
		return []byte("true"), nil
	case VoteRejected:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// Proposal is a versioned mediator-generated candidate solution. Versions
// are strictly increasing per issue, starting at 1 and never exceeding
// MaxProposalAttempts. Only the highest version is actionable.
type Proposal struct {
	ID            string    `json:"id"`
	IssueID       string    `json:"issue_id"`
	Version       int       `json:"version"`
	Content       string    `json:"content"`
	InternalScore float64   `json:"internal_score"`
	IsCompromise  bool      `json:"is_compromise"`
	AcceptedByA   Vote      `json:"accepted_by_a"`
	AcceptedByB   Vote      `json:"accepted_by_b"`
	CreatedAt     time.Time `json:"created_at"`
}

// BothVoted reports whether both partners have cast their votes.
func (p *Proposal) BothVoted() bool {
	return p.AcceptedByA.Cast() && p.AcceptedByB.Cast()
}

// BothAccepted reports whether both partners accepted.
func (p *Proposal) BothAccepted() bool {
	return p.AcceptedByA == VoteAccepted && p.AcceptedByB == VoteAccepted
}

// SubmitVoteRequest is a partner's vote on the current proposal.
type SubmitVoteRequest struct {
	Accept bool `json:"accept"`
}

// SubmitVoteResponse reports the updated proposal and the resulting issue
// state.
type SubmitVoteResponse struct {
	Proposal           *Proposal   `json:"proposal"`
	IssueStatus        IssueStatus `json:"issue_status"`
	BothVoted          bool        `json:"both_voted"`
	BothAccepted       *bool       `json:"both_accepted,omitempty"`
	MaxAttemptsReached bool        `json:"max_attempts_reached,omitempty"`
}
