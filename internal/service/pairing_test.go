package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserGeneratesPartnerCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, u.PartnerCode, 6)
	assert.Nil(t, u.ConnectedUserID)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	_, err = e.pairing.CreateUser(ctx, "Other Alice", "alice@example.com")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestConnectLinksBothSides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := e.pair(t)

	gotA, err := e.store.UserByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := e.store.UserByID(ctx, b.ID)
	require.NoError(t, err)

	require.NotNil(t, gotA.ConnectedUserID)
	require.NotNil(t, gotB.ConnectedUserID)
	assert.Equal(t, b.ID, *gotA.ConnectedUserID)
	assert.Equal(t, a.ID, *gotB.ConnectedUserID)

	// Both sides receive a connection notification.
	unreadA, err := e.store.UnreadNotifications(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, unreadA)
}

func TestConnectCaseInsensitiveCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	b, err := e.pairing.CreateUser(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, a.ID, "  "+lower(b.PartnerCode)+"  ")
	assert.NoError(t, err)
}

func lower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + 32
		}
	}
	return string(out)
}

func TestConnectRejectsOwnCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, a.ID, a.PartnerCode)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestConnectRejectsUnknownCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.pairing.CreateUser(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, a.ID, "ZZZZ99")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestConnectRejectsTakenPartner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, b := e.pair(t)

	c, err := e.pairing.CreateUser(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, c.ID, b.PartnerCode)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestConnectRejectsAlreadyConnectedRequester(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _ := e.pair(t)

	c, err := e.pairing.CreateUser(ctx, "Carol", "carol@example.com")
	require.NoError(t, err)

	_, err = e.pairing.Connect(ctx, a.ID, c.PartnerCode)
	assert.Equal(t, KindConflict, KindOf(err))
}
