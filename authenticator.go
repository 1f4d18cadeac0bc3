package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	Token   string
	Account *Account
}

// Auther verifies credentials and issues session tokens
type Auther struct {
	accounts     Accounts
	hasher       PasswordHasher
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(accounts Accounts, tokens TokenService, hasher PasswordHasher) *Auther {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Auther{
		accounts:     accounts,
		hasher:       hasher,
		tokenService: tokens,
		logger:       defLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock overrides the clock used to stamp events
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login checks the credentials, refreshes the last login time and returns a
// session token. Unknown email and wrong password are indistinguishable.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"email": NormalizeEmail(email),
				"error": ErrInvalidCredentials.Error(),
			})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login find account error", "error", err)
		return nil, err
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actorFromAccount(account), account.ID.String(), map[string]any{
			"email": account.Email,
			"error": ErrInvalidCredentials.Error(),
		})
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login compare password error", "error", err)
		return nil, ErrInvalidCredentials
	}

	if account.IsBlocked() {
		s.logger.Warn("Login rejected for blocked account", "account_id", account.ID.String())
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actorFromAccount(account), account.ID.String(), map[string]any{
			"email":  account.Email,
			"error":  ErrAccountBlocked.Error(),
			"status": string(account.Status),
		})
		return nil, ErrAccountBlocked
	}

	if err := s.accounts.TouchLogin(ctx, account.ID); err != nil {
		s.logger.Error("Login touch last login error", "error", err)
		return nil, fmt.Errorf("record login: %w", err)
	}

	if fresh, err := s.accounts.FindByID(ctx, account.ID); err == nil {
		account = fresh
	} else {
		s.logger.Warn("Login reload account error", "error", err)
	}

	token, err := s.tokenService.Generate(account)
	if err != nil {
		s.logger.Error("Login generate token error", "error", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, actorFromAccount(account), account.ID.String(), map[string]any{
		"email": account.Email,
	})

	return &LoginResult{Token: token, Account: account}, nil
}

// SessionFromToken validates a raw token and returns its claims
func (s *Auther) SessionFromToken(raw string) (*SessionClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	})
}

func actorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{
		ID:   account.ID.String(),
		Type: "account",
	}
}
