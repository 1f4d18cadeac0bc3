package accounts_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
)

func TestAccountContext(t *testing.T) {
	ctx := context.Background()

	_, ok := accounts.FromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, accounts.SystemActor, accounts.ActorFromContext(ctx))

	account := &accounts.Account{ID: uuid.New(), Email: "ada@example.com"}
	ctx = accounts.WithContext(ctx, account)

	got, ok := accounts.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, account, got)

	actor := accounts.ActorFromContext(ctx)
	assert.Equal(t, account.ID.String(), actor.ID)
	assert.Equal(t, "account", actor.Type)
}

func TestNilAccountInContext(t *testing.T) {
	ctx := accounts.WithContext(context.Background(), nil)
	_, ok := accounts.FromContext(ctx)
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	_, ok := accounts.GetClaims(ctx)
	assert.False(t, ok)

	claims := &accounts.SessionClaims{UID: uuid.NewString()}
	ctx = accounts.WithClaimsContext(ctx, claims)

	got, ok := accounts.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.UID, got.UserID())
}
