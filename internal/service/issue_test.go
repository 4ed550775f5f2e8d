package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetalk/mediation-platform/internal/model"
)

func TestCreateIssueRequiresPartner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	_, err = e.issues.Create(ctx, u.ID, "Holidays")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestCreateIssueDefaultsTitle(t *testing.T) {
	e := newEnv(t)

	a, _ := e.pair(t)
	issue, err := e.issues.Create(context.Background(), a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "New Issue", issue.Summary)
	assert.Equal(t, model.IssueInProgress, issue.Status)
}

func TestCreateIssueSingleActivePerPair(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	e.openIssue(t, a)

	// The partner creating from the other side hits the same limit.
	_, err := e.issues.Create(ctx, b.ID, "Another")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestCreateIssueNotifiesPartner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	e.openIssue(t, a)

	unread, err := e.store.UnreadNotifications(ctx, b.ID, 10)
	require.NoError(t, err)

	var found bool
	for _, n := range unread {
		if n.Type == model.NotificationNewIssue && n.Payload.IssueID != "" {
			found = true
		}
	}
	assert.True(t, found, "partner should be notified about the new issue")
}

func TestGetUserDataSnapshot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)
	issue := e.openIssue(t, a)

	_, err := e.messages.Send(ctx, a.ID, issue.ID, "We need to sort out Friday pickups")
	require.NoError(t, err)

	data, err := e.issues.GetUserData(ctx, a.ID)
	require.NoError(t, err)

	require.NotNil(t, data.ConnectedPartner)
	assert.Equal(t, b.ID, data.ConnectedPartner.ID)
	require.NotNil(t, data.CurrentIssue)
	assert.Equal(t, issue.ID, data.CurrentIssue.ID)
	assert.Len(t, data.RecentMessages, 2) // user message + agent reply
	assert.Nil(t, data.CurrentProposal)
}

func TestGetUserDataIncludesProposalWhenSent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)
	issue := e.openIssue(t, a)
	sendToProposal(t, e, a.ID, issue.ID)

	data, err := e.issues.GetUserData(ctx, a.ID)
	require.NoError(t, err)

	require.NotNil(t, data.CurrentIssue)
	assert.Equal(t, model.IssueProposalSent, data.CurrentIssue.Status)
	require.NotNil(t, data.CurrentProposal)
	assert.Equal(t, 1, data.CurrentProposal.Version)
}

func TestGetUserDataUnpairedUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	data, err := e.issues.GetUserData(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, data.ConnectedPartner)
	assert.Nil(t, data.CurrentIssue)
}
