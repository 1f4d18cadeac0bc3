package accounts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseAccountIDs parses a list of textual ids. The first malformed entry
// fails the whole list with ErrValidation.
func ParseAccountIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for i, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: ids[%d] %q is not a valid uuid", ErrValidation, i, value)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HasAccountID reports whether the claims carry a parseable account id.
func HasAccountID(claims *SessionClaims) bool {
	if claims == nil {
		return false
	}
	_, err := claims.AccountID()
	return err == nil
}
