package accounts_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	accounts "github.com/goliatone/go-accounts"
)

// MockStatusWriter implements accounts.StatusWriter
type MockStatusWriter struct {
	mock.Mock
}

func (m *MockStatusWriter) SetStatus(ctx context.Context, id uuid.UUID, status accounts.AccountStatus) (*accounts.Account, error) {
	args := m.Called(ctx, id, status)
	if v := args.Get(0); v != nil {
		return v.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAccountFinder implements accounts.AccountFinder
type MockAccountFinder struct {
	mock.Mock
}

func (m *MockAccountFinder) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuthenticator implements accounts.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*accounts.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*accounts.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyVerification(ctx context.Context, notice accounts.VerificationNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}
