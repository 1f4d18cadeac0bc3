package accounts_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
)

func TestParseAccountIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, err := accounts.ParseAccountIDs([]string{a.String(), " " + b.String() + " "})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	ids, err = accounts.ParseAccountIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = accounts.ParseAccountIDs([]string{a.String(), "nope"})
	assert.ErrorIs(t, err, accounts.ErrValidation)
	assert.Contains(t, err.Error(), "ids[1]")
}

func TestHasAccountID(t *testing.T) {
	assert.False(t, accounts.HasAccountID(nil))
	assert.False(t, accounts.HasAccountID(&accounts.SessionClaims{}))
	assert.False(t, accounts.HasAccountID(&accounts.SessionClaims{UID: "admin"}))

	id := uuid.New()
	assert.True(t, accounts.HasAccountID(&accounts.SessionClaims{UID: id.String()}))
	assert.True(t, accounts.HasAccountID(&accounts.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
	}))
}
