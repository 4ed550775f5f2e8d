package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
	"github.com/safetalk/mediation-platform/pkg/metrics"
)

// VoteService records partner votes on the current proposal and applies the
// resulting issue transition.
type VoteService struct {
	store       *store.Store
	locks       *IssueLocks
	queue       TaskQueue
	notifier    *NotificationService
	logger      *logger.Logger
	maxAttempts int
}

// NewVoteService creates a new vote service.
func NewVoteService(st *store.Store, locks *IssueLocks, queue TaskQueue, notifier *NotificationService, log *logger.Logger, maxAttempts int) *VoteService {
	if maxAttempts <= 0 {
		maxAttempts = model.MaxProposalAttempts
	}
	return &VoteService{
		store:       st,
		locks:       locks,
		queue:       queue,
		notifier:    notifier,
		logger:      log,
		maxAttempts: maxAttempts,
	}
}

// Submit casts one partner's vote. Only the issue's highest-version proposal
// is actionable, and only while the issue is proposal_sent. The vote write is
// a compare-and-set so a repeat vote from the same partner is rejected and
// concurrent votes from the two partners are both recorded.
func (s *VoteService) Submit(ctx context.Context, userID, proposalID string, accept bool) (*model.SubmitVoteResponse, error) {
	proposal, err := s.store.ProposalByID(ctx, proposalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "proposal not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load proposal", err)
	}

	issue, err := s.store.IssueByID(ctx, proposal.IssueID)
	if err != nil {
		return nil, wrap(KindTransient, "failed to load issue", err)
	}
	if !issue.Participant(userID) {
		return nil, E(KindForbidden, "access denied")
	}

	unlock := s.locks.Lock(issue.ID)
	defer unlock()

	issue, err = s.store.IssueByID(ctx, issue.ID)
	if err != nil {
		return nil, wrap(KindTransient, "failed to load issue", err)
	}
	if issue.Status != model.IssueProposalSent {
		return nil, E(KindConflict, "no proposal is awaiting votes on this issue")
	}

	latest, err := s.store.LatestProposal(ctx, issue.ID)
	if err != nil {
		return nil, wrap(KindTransient, "failed to load current proposal", err)
	}
	if latest.ID != proposal.ID {
		return nil, E(KindConflict, "this proposal is no longer current")
	}

	isPartnerA := issue.PartnerAID == userID
	updated, err := s.store.CastVote(ctx, proposal.ID, isPartnerA, accept)
	if errors.Is(err, store.ErrVoteCast) {
		return nil, E(KindConflict, "your vote has already been recorded for this proposal")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to record vote", err)
	}

	decision := "rejected"
	if accept {
		decision = "accepted"
	}
	metrics.VotesTotal.WithLabelValues(decision).Inc()
	s.logger.Info("vote recorded",
		zap.String("issue_id", issue.ID),
		zap.String("proposal_id", updated.ID),
		zap.Int("version", updated.Version),
		zap.String("decision", decision))

	if !updated.BothVoted() {
		s.notifyPendingVote(ctx, issue, updated, userID, accept)
		return &model.SubmitVoteResponse{
			Proposal:    updated,
			IssueStatus: issue.Status,
			BothVoted:   false,
		}, nil
	}

	if updated.BothAccepted() {
		return s.resolve(ctx, issue, updated)
	}
	return s.reject(ctx, issue, updated)
}

func (s *VoteService) resolve(ctx context.Context, issue *model.Issue, proposal *model.Proposal) (*model.SubmitVoteResponse, error) {
	if err := s.store.ResolveIssue(ctx, issue.ID, time.Now().UTC()); err != nil {
		return nil, wrap(KindTransient, "failed to resolve issue", err)
	}
	metrics.IssuesResolvedTotal.Inc()
	s.logger.Info("issue resolved",
		zap.String("issue_id", issue.ID),
		zap.Int("proposal_version", proposal.Version))

	s.notifyBoth(ctx, issue, model.NotificationIssueResolved, model.NotificationPayload{
		IssueID:    issue.ID,
		ProposalID: proposal.ID,
		Message:    "Issue has been successfully resolved!",
	})

	accepted := true
	return &model.SubmitVoteResponse{
		Proposal:     proposal,
		IssueStatus:  model.IssueResolved,
		BothVoted:    true,
		BothAccepted: &accepted,
	}, nil
}

func (s *VoteService) reject(ctx context.Context, issue *model.Issue, proposal *model.Proposal) (*model.SubmitVoteResponse, error) {
	if err := s.store.ReopenIssue(ctx, issue.ID); err != nil {
		return nil, wrap(KindTransient, "failed to reopen issue", err)
	}

	maxReached := proposal.Version >= s.maxAttempts
	message := "Proposal was not accepted. The mediator will create a new proposal."
	if maxReached {
		message = "Proposal was not accepted and the maximum number of attempts has been reached."
	}

	s.notifyBoth(ctx, issue, model.NotificationProposalReady, model.NotificationPayload{
		IssueID:    issue.ID,
		ProposalID: proposal.ID,
		Message:    message,
	})

	if maxReached {
		s.logger.Warn("max proposal attempts reached",
			zap.String("issue_id", issue.ID),
			zap.Int("version", proposal.Version))
	} else if err := s.queue.EnqueueMediatorCycle(ctx, issue.ID, model.TaskReasonProposalRejected); err != nil {
		s.logger.Error("failed to enqueue mediator cycle",
			zap.String("issue_id", issue.ID),
			zap.Error(err))
	}

	accepted := false
	return &model.SubmitVoteResponse{
		Proposal:           proposal,
		IssueStatus:        model.IssueInProgress,
		BothVoted:          true,
		BothAccepted:       &accepted,
		MaxAttemptsReached: maxReached,
	}, nil
}

func (s *VoteService) notifyPendingVote(ctx context.Context, issue *model.Issue, proposal *model.Proposal, voterID string, accepted bool) {
	voter, err := s.store.UserByID(ctx, voterID)
	name := "Your co-parent"
	if err == nil {
		name = displayName(voter)
	}
	verb := "rejected"
	if accepted {
		verb = "accepted"
	}

	other := issue.OtherPartner(voterID)
	if _, err := s.notifier.Send(ctx, other, model.NotificationProposalReady,
		model.NotificationPayload{
			IssueID:    issue.ID,
			ProposalID: proposal.ID,
			Message:    fmt.Sprintf("%s has %s the proposal. Your vote is needed.", name, verb),
		}); err != nil {
		s.logger.Warn("pending vote notification failed", zap.Error(err))
	}
}

func (s *VoteService) notifyBoth(ctx context.Context, issue *model.Issue, typ model.NotificationType, payload model.NotificationPayload) {
	for _, userID := range []string{issue.PartnerAID, issue.PartnerBID} {
		if _, err := s.notifier.Send(ctx, userID, typ, payload); err != nil {
			s.logger.Warn("vote outcome notification failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}
