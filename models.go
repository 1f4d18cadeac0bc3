package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Name          string        `bun:"name,notnull" json:"name"`
	Email         string        `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string        `bun:"password_hash,notnull" json:"-"`
	Status        AccountStatus `bun:"status,notnull" json:"status"`
	RegisteredAt  time.Time     `bun:"registered_at,notnull" json:"registrationTime"`
	LastLoginAt   time.Time     `bun:"last_login_at,notnull" json:"lastLoginTime"`
}

// EnsureStatus defaults an empty status to Unverified.
func (a *Account) EnsureStatus() {
	if a == nil {
		return
	}
	if a.Status == "" {
		a.Status = StatusUnverified
	}
}

// IsBlocked reports whether the account is administratively suspended.
func (a *Account) IsBlocked() bool {
	return a != nil && a.Status == StatusBlocked
}

// IsActive reports whether the account is verified and in good standing.
func (a *Account) IsActive() bool {
	return a != nil && a.Status == StatusActive
}

// IsUnverified reports whether the account has not confirmed its email yet.
func (a *Account) IsUnverified() bool {
	return a != nil && a.Status == StatusUnverified
}

// AccountSummary is the public projection returned on login
type AccountSummary struct {
	ID     uuid.UUID     `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Status AccountStatus `json:"status"`
}

// Summary returns the public projection of the account
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Status: a.Status,
	}
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
