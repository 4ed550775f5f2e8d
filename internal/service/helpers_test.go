package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/agent"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// scriptClassifier returns a fixed verdict or error.
type scriptClassifier struct {
	harmful bool
	err     error
}

func (c *scriptClassifier) Classify(ctx context.Context, text string) (agent.Verdict, error) {
	if c.err != nil {
		return agent.Verdict{}, c.err
	}
	return agent.Verdict{Harmful: c.harmful}, nil
}

// scriptNormalizer applies fn, or echoes the raw text when fn is nil.
type scriptNormalizer struct {
	fn  func(rawText, senderName string) (agent.Normalization, error)
	err error
}

func (n *scriptNormalizer) Normalize(ctx context.Context, rawText, senderName string) (agent.Normalization, error) {
	if n.err != nil {
		return agent.Normalization{}, n.err
	}
	if n.fn != nil {
		return n.fn(rawText, senderName)
	}
	return agent.Normalization{
		ProcessedText:   "processed: " + rawText,
		MediatorSummary: "summary: " + rawText,
	}, nil
}

// scriptGenerator returns a fixed draft or error.
type scriptGenerator struct {
	draft agent.Draft
	err   error
	calls int
	mu    sync.Mutex
}

func (g *scriptGenerator) Generate(ctx context.Context, in agent.GenerateInput) (agent.Draft, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return agent.Draft{}, g.err
	}
	return g.draft, nil
}

func (g *scriptGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type queuedTask struct {
	IssueID string
	Reason  string
}

// recordQueue captures enqueued mediator tasks without executing them.
type recordQueue struct {
	mu    sync.Mutex
	tasks []queuedTask
	err   error
}

func (q *recordQueue) EnqueueMediatorCycle(ctx context.Context, issueID, reason string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, queuedTask{IssueID: issueID, Reason: reason})
	return nil
}

func (q *recordQueue) all() []queuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queuedTask(nil), q.tasks...)
}

// env wires the full service stack over an in-memory store with scripted
// agents and a recording task queue.
type env struct {
	store      *store.Store
	queue      *recordQueue
	classifier *scriptClassifier
	normalizer *scriptNormalizer
	generator  *scriptGenerator

	notifications *NotificationService
	pairing       *PairingService
	issues        *IssueService
	messages      *MessageService
	mediator      *MediatorService
	votes         *VoteService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := testLogger()
	locks := NewIssueLocks()

	e := &env{
		store:      st,
		queue:      &recordQueue{},
		classifier: &scriptClassifier{},
		normalizer: &scriptNormalizer{},
		generator:  &scriptGenerator{draft: agent.Draft{Content: "candidate solution", Score: 0.9}},
	}

	e.notifications = NewNotificationService(st, nil, nil, log)
	e.pairing = NewPairingService(st, e.notifications, log)
	e.issues = NewIssueService(st, e.notifications, log)
	e.messages = NewMessageService(st, e.classifier, e.normalizer, locks, e.queue, log, time.Second, model.MediatorTriggerEvery)
	e.mediator = NewMediatorService(st, e.generator, locks, e.notifications, log, MediatorConfig{
		ScoreThreshold:  model.MediatorScoreThreshold,
		MaxAttempts:     model.MaxProposalAttempts,
		CompromiseAfter: model.MediatorCompromiseAfter,
		AgentTimeout:    time.Second,
	})
	e.votes = NewVoteService(st, locks, e.queue, e.notifications, log, model.MaxProposalAttempts)

	return e
}

// pair registers two connected users.
func (e *env) pair(t *testing.T) (*model.User, *model.User) {
	t.Helper()
	ctx := context.Background()

	a, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	b, err := e.pairing.CreateUser(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, a.ID, b.PartnerCode)
	require.NoError(t, err)

	return a, b
}

// openIssue creates an issue between the pair, started by a.
func (e *env) openIssue(t *testing.T, a *model.User) *model.Issue {
	t.Helper()
	issue, err := e.issues.Create(context.Background(), a.ID, "Pickup schedule")
	require.NoError(t, err)
	return issue
}

// sendToProposal posts three messages to hit the mediator milestone, runs the
// cycle, and returns the resulting proposal.
func sendToProposal(t *testing.T, e *env, userID, issueID string) *model.Proposal {
	t.Helper()
	ctx := context.Background()

	for _, text := range []string{
		"The Friday pickups keep clashing with my work schedule",
		"I would like to swap Fridays for Mondays",
		"A fixed rotation would make this predictable for everyone",
	} {
		_, err := e.messages.Send(ctx, userID, issueID, text)
		require.NoError(t, err)
	}
	require.NoError(t, e.mediator.RunCycle(ctx, issueID))

	p, err := e.store.LatestProposal(ctx, issueID)
	require.NoError(t, err)
	return p
}
