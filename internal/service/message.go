package service

import (
	"context"
	"errors"
	"fmt"
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

// MessageService runs the send-message pipeline: status guards, safety
// screening, normalization, persistence, the scripted agent acknowledgement,
// and the mediator trigger rule.
type MessageService struct {
	store        *store.Store
	classifier   agent.SafetyClassifier
	personal     agent.PersonalAgent
	locks        *IssueLocks
	queue        TaskQueue
	logger       *logger.Logger
	agentTimeout time.Duration
	triggerEvery int
}

// NewMessageService creates a new message service.
func NewMessageService(
	st *store.Store,
	classifier agent.SafetyClassifier,
	personal agent.PersonalAgent,
	locks *IssueLocks,
	queue TaskQueue,
	log *logger.Logger,
	agentTimeout time.Duration,
	triggerEvery int,
) *MessageService {
	if triggerEvery <= 0 {
		triggerEvery = model.MediatorTriggerEvery
	}
	return &MessageService{
		store:        st,
		classifier:   classifier,
		personal:     personal,
		locks:        locks,
		queue:        queue,
		logger:       log,
		agentTimeout: agentTimeout,
		triggerEvery: triggerEvery,
	}
}

// Send processes one user message on an issue. On the red-flag path the raw
// message is persisted flagged, the issue halts, and a KindRedFlag error is
// returned; on the clean path the processed message and a scripted agent
// reply are persisted and every triggerEvery-th user message enqueues exactly
// one mediator cycle.
func (s *MessageService) Send(ctx context.Context, userID, issueID, content string) (*model.SendMessageResponse, error) {
	sender, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "user profile not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load user", err)
	}

	issue, err := s.store.IssueByID(ctx, issueID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "issue not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load issue", err)
	}
	if !issue.Participant(userID) {
		return nil, E(KindForbidden, "access denied")
	}

	unlock := s.locks.Lock(issueID)
	defer unlock()

	// Re-read under the lock: the other partner or the worker may have
	// advanced the state while we waited.
	issue, err = s.store.IssueByID(ctx, issueID)
	if err != nil {
		return nil, wrap(KindTransient, "failed to load issue", err)
	}
	switch issue.Status {
	case model.IssueHalted:
		return nil, E(KindRedFlag, "this issue has been halted due to safety concerns")
	case model.IssueResolved:
		return nil, E(KindConflict, "this issue has been resolved")
	case model.IssueProposalSent:
		return nil, E(KindConflict, "resolve the current proposal first")
	}

	harmful := s.classify(ctx, issue.ID, content)
	var norm agent.Normalization
	if !harmful {
		norm = s.normalize(ctx, issue.ID, content, displayName(sender))
	}

	if harmful || norm.RedFlagged {
		return nil, s.haltForRedFlag(ctx, issue, userID, content)
	}

	now := time.Now().UTC()
	userMsg := &model.Message{
		ID:              uuid.Must(uuid.NewV7()).String(),
		IssueID:         issue.ID,
		SenderType:      model.SenderUser,
		SenderID:        &userID,
		Content:         norm.ProcessedText,
		MediatorSummary: norm.MediatorSummary,
		CreatedAt:       now,
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, wrap(KindTransient, "failed to store message", err)
	}

	aiMsg := &model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		IssueID:    issue.ID,
		SenderType: model.SenderAI,
		Content:    acknowledgement(norm.MediatorSummary),
		CreatedAt:  now.Add(time.Millisecond),
	}
	if err := s.store.CreateMessage(ctx, aiMsg); err != nil {
		return nil, wrap(KindTransient, "failed to store agent reply", err)
	}

	s.audit(ctx, issue.ID, model.AgentPartnerAI, content, norm.ProcessedText)
	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser)).Inc()
	metrics.MessagesTotal.WithLabelValues(string(model.SenderAI)).Inc()

	count, err := s.store.UserMessageCount(ctx, issue.ID)
	if err != nil {
		return nil, wrap(KindTransient, "failed to count messages", err)
	}
	if count > 0 && count%s.triggerEvery == 0 {
		if err := s.queue.EnqueueMediatorCycle(ctx, issue.ID, model.TaskReasonMessageMilestone); err != nil {
			// The message is already persisted; losing one trigger degrades
			// to the next milestone rather than failing the send.
			s.logger.Error("failed to enqueue mediator cycle",
				zap.String("issue_id", issue.ID),
				zap.Error(err))
		} else {
			s.logger.Info("mediator cycle enqueued",
				zap.String("issue_id", issue.ID),
				zap.Int("user_messages", count))
		}
	}

	return &model.SendMessageResponse{UserMessage: userMsg, AIReply: aiMsg}, nil
}

// classify consults the safety classifier with a bounded timeout. A failing
// classifier is treated as "not harmful" so an external outage never blocks
// conversation; the failure is logged and audited.
func (s *MessageService) classify(ctx context.Context, issueID, content string) bool {
	cctx, cancel := context.WithTimeout(ctx, s.agentTimeout)
	defer cancel()

	verdict, err := s.classifier.Classify(cctx, content)
	if err != nil {
		s.logger.Warn("safety classifier unavailable, passing message through",
			zap.String("issue_id", issueID),
			zap.Error(err))
		s.audit(ctx, issueID, model.AgentSafetyAI, content, "error: "+err.Error())
		return false
	}
	if verdict.Harmful {
		s.audit(ctx, issueID, model.AgentSafetyAI, content, "harmful")
	}
	return verdict.Harmful
}

// normalize invokes the personal agent with a bounded timeout. On failure the
// trimmed raw text passes through unflagged; a message is never dropped.
func (s *MessageService) normalize(ctx context.Context, issueID, content, senderName string) agent.Normalization {
	nctx, cancel := context.WithTimeout(ctx, s.agentTimeout)
	defer cancel()

	norm, err := s.personal.Normalize(nctx, content, senderName)
	if err != nil {
		s.logger.Warn("personal agent failed, passing raw message through",
			zap.String("issue_id", issueID),
			zap.Error(err))
		trimmed := strings.TrimSpace(content)
		return agent.Normalization{
			ProcessedText:   trimmed,
			MediatorSummary: summaryFallback(trimmed),
		}
	}
	return norm
}

func (s *MessageService) haltForRedFlag(ctx context.Context, issue *model.Issue, userID, rawContent string) error {
	// The raw content is persisted, flagged, for the safety record; the
	// processed rewrite is discarded.
	msg := &model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		IssueID:    issue.ID,
		SenderType: model.SenderUser,
		SenderID:   &userID,
		Content:    rawContent,
		IsFlagged:  true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return wrap(KindTransient, "failed to store flagged message", err)
	}
	if err := s.store.HaltIssue(ctx, issue.ID); err != nil && !errors.Is(err, store.ErrStateConflict) {
		return wrap(KindTransient, "failed to halt issue", err)
	}

	metrics.RedFlagsTotal.Inc()
	s.logger.Warn("issue halted on red flag",
		zap.String("issue_id", issue.ID),
		zap.String("sender_id", userID))

	return E(KindRedFlag, "message contains inappropriate content; the issue has been halted for safety")
}

func (s *MessageService) audit(ctx context.Context, issueID string, agentName model.AgentName, input, output string) {
	e := &model.AIEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		IssueID:   issueID,
		Agent:     agentName,
		Input:     input,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RecordAIEvent(ctx, e); err != nil {
		s.logger.Warn("failed to record ai event", zap.Error(err))
	}
}

func acknowledgement(summary string) string {
	return fmt.Sprintf("I understand your concern about %q. Let me help you work through this. Can you tell me more about what specific outcome you're hoping for?", summary)
}

func summaryFallback(content string) string {
	if len(content) <= 100 {
		return content
	}
	return content[:100]
}
