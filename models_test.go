package accounts_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
)

func TestAccountJSON(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	account := accounts.Account{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$secret",
		Status:       accounts.StatusActive,
		RegisteredAt: now,
		LastLoginAt:  now,
	}

	raw, err := json.Marshal(account)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, account.ID.String(), out["id"])
	assert.Equal(t, "Active", out["status"])
	assert.Contains(t, out, "registrationTime")
	assert.Contains(t, out, "lastLoginTime")
	assert.NotContains(t, string(raw), "secret")
}

func TestAccountStatusHelpers(t *testing.T) {
	var nilAccount *accounts.Account
	assert.False(t, nilAccount.IsBlocked())
	nilAccount.EnsureStatus()

	account := &accounts.Account{}
	account.EnsureStatus()
	assert.True(t, account.IsUnverified())

	account.Status = accounts.StatusBlocked
	assert.True(t, account.IsBlocked())
	assert.False(t, account.IsActive())

	summary := account.Summary()
	assert.Equal(t, accounts.StatusBlocked, summary.Status)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", accounts.NormalizeEmail("  Ada@Example.COM "))
}
