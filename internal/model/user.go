// Package model defines data structures for the mediation platform.
package model

import (
	"time"
)

// User is one account in the system. Pairing is symmetric: either both
// users' ConnectedUserID fields point at each other, or neither is set.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PartnerCode     string    `json:"partner_code"`
	ConnectedUserID *string   `json:"connected_user_id,omitempty"`
	FCMToken        *string   `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// PartnerSummary is the public view of a connected partner.
type PartnerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateUserRequest is the request to register a new account.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ConnectPartnerRequest is the request to link two accounts by code.
type ConnectPartnerRequest struct {
	PartnerCode string `json:"partner_code"`
}

// ConnectPartnerResponse is returned after a successful connection.
type ConnectPartnerResponse struct {
	Partner PartnerSummary `json:"partner"`
}

// RegisterPushTokenRequest stores a device push token for a user.
type RegisterPushTokenRequest struct {
	Token string `json:"token"`
}

// UserData is the aggregate snapshot the mobile client renders from.
type UserData struct {
	User                User            `json:"user"`
	ConnectedPartner    *PartnerSummary `json:"connected_partner,omitempty"`
	CurrentIssue        *Issue          `json:"current_issue,omitempty"`
	CurrentProposal     *Proposal       `json:"current_proposal,omitempty"`
	RecentMessages      []Message       `json:"recent_messages"`
	UnreadNotifications []Notification  `json:"unread_notifications"`
	ResolvedIssues      []Issue         `json:"resolved_issues"`
}
