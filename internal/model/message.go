package model

import (
	"time"
)

// SenderType distinguishes user-authored messages from agent replies.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

// Message is a single chat entry on an issue. Messages are immutable once
// created. For red-flagged messages Content holds the original raw text;
// otherwise it holds the normalizer's processed text.
type Message struct {
	ID              string     `json:"id"`
	IssueID         string     `json:"issue_id"`
	SenderType      SenderType `json:"sender_type"`
	SenderID        *string    `json:"sender_id,omitempty"`
	Content         string     `json:"content"`
	MediatorSummary string     `json:"-"`
	IsFlagged       bool       `json:"is_flagged"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SendMessageRequest is the request to post a message on an issue.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse carries the stored user message and the synthesized
// agent acknowledgement.
type SendMessageResponse struct {
	UserMessage *Message `json:"user_message"`
	AIReply     *Message `json:"ai_reply,omitempty"`
}
