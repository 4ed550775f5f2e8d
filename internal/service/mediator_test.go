package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetalk/mediation-platform/internal/agent"
	"github.com/safetalk/mediation-platform/internal/model"
)

func TestRunCycleProposesAboveThreshold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)

	p := sendToProposal(t, e, a.ID, issue.ID)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "candidate solution", p.Content)
	assert.False(t, p.IsCompromise)

	got, err := e.store.IssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IssueProposalSent, got.Status)

	// Both partners are told a proposal is ready.
	for _, userID := range []string{a.ID, b.ID} {
		unread, err := e.store.UnreadNotifications(ctx, userID, 20)
		require.NoError(t, err)
		var found bool
		for _, n := range unread {
			if n.Type == model.NotificationProposalReady {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestRunCycleAbstainsBelowThreshold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)

	e.generator.draft = agent.Draft{Content: "half-baked idea", Score: 0.5}

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "some concern")
	require.NoError(t, err)
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))

	got, err := e.store.IssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IssueInProgress, got.Status)

	count, err := e.store.ProposalCount(ctx, issue.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunCycleSkipsNonInProgressIssue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)
	sendToProposal(t, e, a.ID, issue.ID)

	calls := e.generator.callCount()

	// A stale task against a proposal_sent issue is a clean no-op.
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))
	assert.Equal(t, calls, e.generator.callCount())

	count, err := e.store.ProposalCount(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunCycleUnknownIssueIsNoop(t *testing.T) {
	e := newEnv(t)
	assert.NoError(t, e.mediator.RunCycle(context.Background(), "no-such-issue"))
}

func TestRunCycleCompromiseModeOverridesScore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "my side of it")
	require.NoError(t, err)

	// Three rejected rounds bring the next attempt past the compromise
	// boundary.
	for v := 1; v <= 3; v++ {
		require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))
		rejectCurrent(t, e, a, b, issue.ID)
	}

	// A weak draft would normally be withheld, but attempt 4 forces a
	// compromise proposal through.
	e.generator.draft = agent.Draft{Content: "meet in the middle", Score: 0.4}
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))

	p, err := e.store.LatestProposal(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Version)
	assert.True(t, p.IsCompromise)
}

func TestRunCycleStopsAtAttemptCeiling(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "concern")
	require.NoError(t, err)

	for v := 1; v <= model.MaxProposalAttempts; v++ {
		require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))
		rejectCurrent(t, e, a, b, issue.ID)
	}

	calls := e.generator.callCount()
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))
	assert.Equal(t, calls, e.generator.callCount(), "generator must not run past the ceiling")

	count, err := e.store.ProposalCount(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MaxProposalAttempts, count)
}

func TestRunCycleGeneratorFailureFallsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)

	e.generator.err = errors.New("model endpoint down")

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "concern")
	require.NoError(t, err)
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))

	// The low-score fallback abstains; the conversation continues.
	got, err := e.store.IssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IssueInProgress, got.Status)
}

func TestRunCycleRecordsAuditEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)
	sendToProposal(t, e, a.ID, issue.ID)

	events, err := e.store.AIEventsForIssue(ctx, issue.ID)
	require.NoError(t, err)

	var mediatorEvents int
	for _, ev := range events {
		if ev.Agent == model.AgentMediatorAI {
			mediatorEvents++
		}
	}
	assert.Equal(t, 1, mediatorEvents)
}

// rejectCurrent has both partners reject the latest proposal, reopening the
// issue.
func rejectCurrent(t *testing.T, e *env, a, b *model.User, issueID string) {
	t.Helper()
	ctx := context.Background()

	p, err := e.store.LatestProposal(ctx, issueID)
	require.NoError(t, err)

	_, err = e.votes.Submit(ctx, a.ID, p.ID, false)
	require.NoError(t, err)
	_, err = e.votes.Submit(ctx, b.ID, p.ID, false)
	require.NoError(t, err)
}
