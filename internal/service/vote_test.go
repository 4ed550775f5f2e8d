package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetalk/mediation-platform/internal/model"
)

func TestSubmitVoteFirstVotePending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	resp, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)

	assert.False(t, resp.BothVoted)
	assert.Nil(t, resp.BothAccepted)
	assert.Equal(t, model.IssueProposalSent, resp.IssueStatus)
	assert.Equal(t, model.VoteAccepted, resp.Proposal.AcceptedByA)
	assert.Equal(t, model.VoteNone, resp.Proposal.AcceptedByB)

	// The other partner is nudged to vote.
	unread, err := e.store.UnreadNotifications(ctx, b.ID, 20)
	require.NoError(t, err)
	var nudged bool
	for _, n := range unread {
		if n.Type == model.NotificationProposalReady && n.Payload.ProposalID == p.ID {
			nudged = true
		}
	}
	assert.True(t, nudged)
}

func TestSubmitVoteBothAcceptResolves(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	_, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)

	resp, err := e.votes.Submit(ctx, b.ID, p.ID, true)
	require.NoError(t, err)

	assert.True(t, resp.BothVoted)
	require.NotNil(t, resp.BothAccepted)
	assert.True(t, *resp.BothAccepted)
	assert.Equal(t, model.IssueResolved, resp.IssueStatus)

	got, err := e.store.IssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IssueResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestSubmitVoteRejectionReopensAndRequeues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	before := len(e.queue.all())

	_, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)
	resp, err := e.votes.Submit(ctx, b.ID, p.ID, false)
	require.NoError(t, err)

	assert.True(t, resp.BothVoted)
	require.NotNil(t, resp.BothAccepted)
	assert.False(t, *resp.BothAccepted)
	assert.Equal(t, model.IssueInProgress, resp.IssueStatus)
	assert.False(t, resp.MaxAttemptsReached)

	tasks := e.queue.all()
	require.Len(t, tasks, before+1)
	assert.Equal(t, model.TaskReasonProposalRejected, tasks[len(tasks)-1].Reason)
}

func TestSubmitVoteDuplicateRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	_, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)

	// Changing one's mind is not allowed; the first vote stands.
	_, err = e.votes.Submit(ctx, a.ID, p.ID, false)
	assert.Equal(t, KindConflict, KindOf(err))

	got, err := e.store.ProposalByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VoteAccepted, got.AcceptedByA)
}

func TestSubmitVoteNonParticipant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	outsider, err := e.pairing.CreateUser(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)

	_, err = e.votes.Submit(ctx, outsider.ID, p.ID, true)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestSubmitVoteUnknownProposal(t *testing.T) {
	e := newEnv(t)

	a, _ := e.pair(t)
	_, err := e.votes.Submit(context.Background(), a.ID, "missing", true)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestSubmitVoteStaleProposal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p1 := sendToProposal(t, e, a.ID, issue.ID)

	rejectCurrent(t, e, a, b, issue.ID)
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))

	// Voting on the superseded version 1 must fail.
	_, err := e.votes.Submit(ctx, a.ID, p1.ID, true)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestSubmitVoteAfterResolution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	_, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)
	_, err = e.votes.Submit(ctx, b.ID, p.ID, true)
	require.NoError(t, err)

	// The issue left proposal_sent; the window is closed.
	_, err = e.votes.Submit(ctx, a.ID, p.ID, false)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestSubmitVoteMaxAttemptsReached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "concern")
	require.NoError(t, err)

	for v := 1; v < model.MaxProposalAttempts; v++ {
		require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))
		rejectCurrent(t, e, a, b, issue.ID)
	}
	require.NoError(t, e.mediator.RunCycle(ctx, issue.ID))

	p, err := e.store.LatestProposal(ctx, issue.ID)
	require.NoError(t, err)
	require.Equal(t, model.MaxProposalAttempts, p.Version)

	before := len(e.queue.all())

	_, err = e.votes.Submit(ctx, a.ID, p.ID, false)
	require.NoError(t, err)
	resp, err := e.votes.Submit(ctx, b.ID, p.ID, false)
	require.NoError(t, err)

	assert.True(t, resp.MaxAttemptsReached)
	// No further cycle is queued once the ceiling is hit.
	assert.Len(t, e.queue.all(), before)
}

func TestSubmitVoteBothResolvedNotifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)
	p := sendToProposal(t, e, a.ID, issue.ID)

	_, err := e.votes.Submit(ctx, a.ID, p.ID, true)
	require.NoError(t, err)
	_, err = e.votes.Submit(ctx, b.ID, p.ID, true)
	require.NoError(t, err)

	for _, userID := range []string{a.ID, b.ID} {
		unread, err := e.store.UnreadNotifications(ctx, userID, 20)
		require.NoError(t, err)
		var resolved bool
		for _, n := range unread {
			if n.Type == model.NotificationIssueResolved {
				resolved = true
			}
		}
		assert.True(t, resolved)
	}
}
