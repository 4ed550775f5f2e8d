package model

import (
	"time"
)

// NotificationType identifies the workflow transition a notification reports.
type NotificationType string

const (
	NotificationNewIssue      NotificationType = "new_issue"
	NotificationProposalReady NotificationType = "proposal_ready"
	NotificationIssueResolved NotificationType = "issue_resolved"
)

// NotificationPayload is the structured body attached to a notification.
type NotificationPayload struct {
	Message    string `json:"message"`
	IssueID    string `json:"issue_id,omitempty"`
	ProposalID string `json:"proposal_id,omitempty"`
}

// Notification is addressed to a single user. IsRead is the only field the
// client mutates; everything else is written once by the core.
type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Type      NotificationType    `json:"type"`
	Payload   NotificationPayload `json:"payload"`
	IsRead    bool                `json:"is_read"`
	CreatedAt time.Time           `json:"created_at"`
}

// SendNotificationRequest is the internal service-to-service request to
// dispatch a notification.
type SendNotificationRequest struct {
	UserID  string              `json:"user_id"`
	Type    NotificationType    `json:"type"`
	Payload NotificationPayload `json:"payload"`
}

// SendNotificationResponse reports the stored row and the push outcome.
type SendNotificationResponse struct {
	Notification *Notification `json:"notification"`
	PushSent     bool          `json:"push_sent"`
}
