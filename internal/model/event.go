package model

import (
	"time"
)

// AgentName identifies which AI capability produced an audit event.
type AgentName string

const (
	AgentPartnerAI  AgentName = "partner_ai"
	AgentMediatorAI AgentName = "mediator_ai"
	AgentSafetyAI   AgentName = "safety_ai"
)

// AIEvent is an audit record of a single agent invocation. It is written for
// traceability only and never read back for control flow.
type AIEvent struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Agent     AgentName `json:"agent"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

// MediatorTask is the queued unit of work that asks the worker to run one
// mediator cycle for an issue.
type MediatorTask struct {
	IssueID    string    `json:"issue_id"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Mediator task reasons.
const (
	TaskReasonMessageMilestone = "message_milestone"
	TaskReasonProposalRejected = "proposal_rejected"
)
