package accounts

import (
	"fmt"
	"strings"
)

// AccountStatus is the lifecycle state of an account
type AccountStatus string

const (
	// StatusUnverified is the initial state after registration
	StatusUnverified AccountStatus = "Unverified"
	// StatusActive is a verified account in good standing
	StatusActive AccountStatus = "Active"
	// StatusBlocked is an administratively suspended account
	StatusBlocked AccountStatus = "Blocked"
)

// AllStatuses lists every known status.
func AllStatuses() []AccountStatus {
	return []AccountStatus{StatusUnverified, StatusActive, StatusBlocked}
}

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusActive, StatusBlocked:
		return true
	default:
		return false
	}
}

func (s AccountStatus) String() string {
	return string(s)
}

// ParseAccountStatus accepts the canonical names, case insensitive.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range AllStatuses() {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown account status %q", ErrValidation, raw)
}
