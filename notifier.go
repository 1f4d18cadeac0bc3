package accounts

import (
	"context"
	"net/url"
	"strings"
)

// VerificationNotice is handed to a Notifier after registration
type VerificationNotice struct {
	AccountID string
	Name      string
	Email     string
	Link      string
}

// Notifier delivers the verification link to a newly registered account
type Notifier interface {
	NotifyVerification(ctx context.Context, notice VerificationNotice) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, notice VerificationNotice) error

// NotifyVerification implements Notifier.
func (f NotifierFunc) NotifyVerification(ctx context.Context, notice VerificationNotice) error {
	if f == nil {
		return nil
	}
	return f(ctx, notice)
}

// LogNotifier writes the verification link to the log instead of sending an email.
type LogNotifier struct {
	Logger Logger
}

// NotifyVerification implements Notifier.
func (n LogNotifier) NotifyVerification(_ context.Context, notice VerificationNotice) error {
	normalizeLogger(n.Logger).Info("fake email sent",
		"to", notice.Email,
		"account_id", notice.AccountID,
		"verify_link", notice.Link,
	)
	return nil
}

// VerificationLink builds "{clientURL}/verify?email={email}".
func VerificationLink(clientURL, email string) string {
	base := strings.TrimRight(clientURL, "/")
	q := url.Values{}
	q.Set("email", email)
	return base + "/verify?" + q.Encode()
}
