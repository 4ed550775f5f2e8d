package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
	"github.com/safetalk/mediation-platform/pkg/metrics"
)

// IssueService owns issue creation and the aggregate client snapshot.
type IssueService struct {
	store    *store.Store
	notifier *NotificationService
	logger   *logger.Logger
}

// NewIssueService creates a new issue service.
func NewIssueService(st *store.Store, notifier *NotificationService, log *logger.Logger) *IssueService {
	return &IssueService{store: st, notifier: notifier, logger: log}
}

// Create starts a new issue between the caller and their connected partner.
// Preconditions: the caller is paired, and the pair has no other active
// issue (the store re-checks this inside the insert transaction, so two
// partners racing to create both cannot win).
func (s *IssueService) Create(ctx context.Context, userID, title string) (*model.Issue, error) {
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "user profile not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load user", err)
	}
	if user.ConnectedUserID == nil {
		return nil, E(KindConflict, "no connected partner found")
	}

	if title == "" {
		title = "New Issue"
	}

	issue := &model.Issue{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PartnerAID: user.ID,
		PartnerBID: *user.ConnectedUserID,
		Status:     model.IssueInProgress,
		Summary:    title,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateIssue(ctx, issue); err != nil {
		if errors.Is(err, store.ErrActiveIssue) {
			return nil, E(KindConflict, "please resolve the existing issue first")
		}
		return nil, wrap(KindTransient, "failed to create issue", err)
	}

	metrics.IssuesCreatedTotal.Inc()
	s.logger.Info("issue created",
		zap.String("issue_id", issue.ID),
		zap.String("partner_a", issue.PartnerAID),
		zap.String("partner_b", issue.PartnerBID))

	if _, err := s.notifier.Send(ctx, issue.PartnerBID, model.NotificationNewIssue,
		model.NotificationPayload{
			IssueID: issue.ID,
			Message: fmt.Sprintf("%s started a new issue: %s", displayName(user), title),
		}); err != nil {
		s.logger.Warn("new issue notification failed", zap.Error(err))
	}

	return issue, nil
}

// GetUserData assembles the snapshot the client renders from: profile,
// partner, active issue, current proposal, recent messages, unread
// notifications and resolved history.
func (s *IssueService) GetUserData(ctx context.Context, userID string) (*model.UserData, error) {
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "user profile not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load user", err)
	}

	data := &model.UserData{User: *user}

	if user.ConnectedUserID != nil {
		partner, err := s.store.UserByID(ctx, *user.ConnectedUserID)
		if err == nil {
			data.ConnectedPartner = &model.PartnerSummary{
				ID: partner.ID, Name: partner.Name, Email: partner.Email,
			}
		}

		issue, err := s.store.ActiveIssueForPair(ctx, user.ID, *user.ConnectedUserID)
		if err == nil {
			data.CurrentIssue = issue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, wrap(KindTransient, "failed to load active issue", err)
		}

		resolved, err := s.store.ResolvedIssuesForPair(ctx, user.ID, *user.ConnectedUserID, 10)
		if err != nil {
			return nil, wrap(KindTransient, "failed to load resolved issues", err)
		}
		data.ResolvedIssues = resolved
	}

	if data.CurrentIssue != nil {
		msgs, err := s.store.RecentMessages(ctx, data.CurrentIssue.ID, 10)
		if err != nil {
			return nil, wrap(KindTransient, "failed to load messages", err)
		}
		data.RecentMessages = msgs

		if data.CurrentIssue.Status == model.IssueProposalSent {
			proposal, err := s.store.LatestProposal(ctx, data.CurrentIssue.ID)
			if err == nil {
				data.CurrentProposal = proposal
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, wrap(KindTransient, "failed to load proposal", err)
			}
		}
	}

	notifs, err := s.store.UnreadNotifications(ctx, user.ID, 5)
	if err != nil {
		return nil, wrap(KindTransient, "failed to load notifications", err)
	}
	data.UnreadNotifications = notifs

	return data, nil
}
