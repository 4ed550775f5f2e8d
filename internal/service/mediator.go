package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/agent"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
	"github.com/safetalk/mediation-platform/pkg/metrics"
)

// Placeholder draft substituted when the generator fails outright: its low
// score keeps the issue in progress so the conversation can continue.
const fallbackDraftContent = "I need more information to create a solution. Please continue sharing your concerns."
const fallbackDraftScore = 0.3

// MediatorConfig tunes the proposal cycle.
type MediatorConfig struct {
	// ScoreThreshold is the minimum readiness score outside compromise mode.
	ScoreThreshold float64
	// MaxAttempts is the hard ceiling on proposal versions per issue.
	MaxAttempts int
	// CompromiseAfter is the attempt count beyond which compromise mode
	// relaxes the threshold.
	CompromiseAfter int
	// AgentTimeout bounds one generator invocation.
	AgentTimeout time.Duration
}

// DefaultMediatorConfig returns the product defaults.
func DefaultMediatorConfig() MediatorConfig {
	return MediatorConfig{
		ScoreThreshold:  model.MediatorScoreThreshold,
		MaxAttempts:     model.MaxProposalAttempts,
		CompromiseAfter: model.MediatorCompromiseAfter,
		AgentTimeout:    30 * time.Second,
	}
}

// MediatorService runs one proposal cycle per queued task: it gathers both
// partners' concern summaries and prior rejected proposals, invokes the
// generator, and either abstains or advances the issue to proposal_sent.
type MediatorService struct {
	store     *store.Store
	generator agent.MediatorAgent
	locks     *IssueLocks
	notifier  *NotificationService
	logger    *logger.Logger
	cfg       MediatorConfig
}

// NewMediatorService creates a new mediator service.
func NewMediatorService(
	st *store.Store,
	generator agent.MediatorAgent,
	locks *IssueLocks,
	notifier *NotificationService,
	log *logger.Logger,
	cfg MediatorConfig,
) *MediatorService {
	if cfg.ScoreThreshold == 0 {
		cfg = DefaultMediatorConfig()
	}
	return &MediatorService{
		store:     st,
		generator: generator,
		locks:     locks,
		notifier:  notifier,
		logger:    log,
		cfg:       cfg,
	}
}

// RunCycle executes one mediator attempt for the issue. It is safe to call
// for stale tasks: a cycle against a halted, resolved or already
// proposal_sent issue is a no-op, as is one past the attempt ceiling.
func (s *MediatorService) RunCycle(ctx context.Context, issueID string) error {
	unlock := s.locks.Lock(issueID)
	defer unlock()

	issue, err := s.store.IssueByID(ctx, issueID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("mediator task for unknown issue", zap.String("issue_id", issueID))
		return nil
	}
	if err != nil {
		return wrap(KindTransient, "failed to load issue", err)
	}
	if issue.Status != model.IssueInProgress {
		s.logger.Info("mediator cycle skipped",
			zap.String("issue_id", issueID),
			zap.String("status", string(issue.Status)))
		metrics.MediatorCyclesTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	previous, err := s.store.ProposalContents(ctx, issueID)
	if err != nil {
		return wrap(KindTransient, "failed to load prior proposals", err)
	}
	attempt := len(previous) + 1
	if attempt > s.cfg.MaxAttempts {
		s.logger.Warn("max proposal attempts reached",
			zap.String("issue_id", issueID),
			zap.Int("attempts", len(previous)))
		metrics.MediatorCyclesTotal.WithLabelValues("ceiling").Inc()
		return nil
	}

	concernsA, concernsB, err := s.gatherConcerns(ctx, issue)
	if err != nil {
		return err
	}

	draft := s.generate(ctx, agent.GenerateInput{
		PartnerAConcerns:  concernsA,
		PartnerBConcerns:  concernsB,
		PreviousProposals: previous,
		Attempt:           attempt,
	})

	s.audit(ctx, issueID, concernsA, concernsB, draft.Content)

	if draft.Score < s.cfg.ScoreThreshold && !draft.Compromise {
		s.logger.Info("mediator abstained",
			zap.String("issue_id", issueID),
			zap.Int("attempt", attempt),
			zap.Float64("score", draft.Score))
		metrics.MediatorCyclesTotal.WithLabelValues("abstained").Inc()
		return nil
	}

	proposal := &model.Proposal{
		ID:            uuid.Must(uuid.NewV7()).String(),
		IssueID:       issueID,
		Version:       attempt,
		Content:       draft.Content,
		InternalScore: draft.Score,
		IsCompromise:  draft.Compromise,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent cycle already produced this version.
			s.logger.Warn("duplicate proposal version", zap.String("issue_id", issueID))
			return nil
		}
		return wrap(KindTransient, "failed to store proposal", err)
	}
	if err := s.store.MarkProposalSent(ctx, issueID); err != nil {
		return wrap(KindTransient, "failed to advance issue", err)
	}

	mode := "solution"
	if draft.Compromise {
		mode = "compromise"
	}
	metrics.MediatorCyclesTotal.WithLabelValues("proposed").Inc()
	metrics.ProposalsTotal.WithLabelValues(mode).Inc()
	s.logger.Info("proposal sent",
		zap.String("issue_id", issueID),
		zap.Int("version", proposal.Version),
		zap.Float64("score", proposal.InternalScore),
		zap.Bool("compromise", proposal.IsCompromise))

	payload := model.NotificationPayload{
		IssueID:    issueID,
		ProposalID: proposal.ID,
		Message:    "A new solution proposal is ready for your review",
	}
	for _, userID := range []string{issue.PartnerAID, issue.PartnerBID} {
		if _, err := s.notifier.Send(ctx, userID, model.NotificationProposalReady, payload); err != nil {
			s.logger.Warn("proposal notification failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	return nil
}

// gatherConcerns partitions the issue's user messages by partner, preferring
// each message's mediator summary over its full content.
func (s *MediatorService) gatherConcerns(ctx context.Context, issue *model.Issue) (a, b []string, err error) {
	msgs, err := s.store.UserMessages(ctx, issue.ID)
	if err != nil {
		return nil, nil, wrap(KindTransient, "failed to load messages", err)
	}
	for _, m := range msgs {
		if m.SenderID == nil || m.IsFlagged {
			continue
		}
		concern := m.MediatorSummary
		if concern == "" {
			concern = m.Content
		}
		switch *m.SenderID {
		case issue.PartnerAID:
			a = append(a, concern)
		case issue.PartnerBID:
			b = append(b, concern)
		}
	}
	return a, b, nil
}

// generate invokes the generator with a bounded timeout, degrading to the
// low-score placeholder on failure so the cycle abstains cleanly instead of
// leaving the issue inconsistent.
func (s *MediatorService) generate(ctx context.Context, in agent.GenerateInput) agent.Draft {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.AgentTimeout)
	defer cancel()

	draft, err := s.generator.Generate(gctx, in)
	if err != nil {
		s.logger.Warn("proposal generation failed",
			zap.Int("attempt", in.Attempt),
			zap.Error(err))
		metrics.MediatorCyclesTotal.WithLabelValues("failed").Inc()
		return agent.Draft{Content: fallbackDraftContent, Score: fallbackDraftScore}
	}
	if in.Attempt > s.cfg.CompromiseAfter {
		draft.Compromise = true
	}
	return draft
}

func (s *MediatorService) audit(ctx context.Context, issueID string, concernsA, concernsB []string, output string) {
	input := "Partner A: " + strings.Join(concernsA, " | ") + " | Partner B: " + strings.Join(concernsB, " | ")
	e := &model.AIEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		IssueID:   issueID,
		Agent:     model.AgentMediatorAI,
		Input:     input,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RecordAIEvent(ctx, e); err != nil {
		s.logger.Warn("failed to record ai event", zap.Error(err))
	}
}
