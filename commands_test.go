package accounts_test

import (
	"context"
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
)

func newTestHandlers(env *testEnv, strict bool, notifier accounts.Notifier) accounts.Handlers {
	sm := accounts.NewAccountStateMachine(env.store,
		accounts.WithStrictTransitions(strict),
		accounts.WithStateMachineActivitySink(env.sink),
		accounts.WithStateMachineClock(env.clock.Now),
	)
	return accounts.NewHandlers(accounts.HandlersConfig{
		Repo:         env.repo,
		StateMachine: sm,
		Hasher:       env.hasher,
		Notifier:     notifier,
		ClientURL:    "http://localhost:5173/",
	},
		accounts.WithCommandActivitySink(env.sink),
		accounts.WithCommandClock(env.clock.Now),
	)
}

func TestRegisterAccountHandler(t *testing.T) {
	env := newTestEnv(t)
	notifier := &MockNotifier{}
	notifier.On("NotifyVerification", mock.Anything, mock.MatchedBy(func(n accounts.VerificationNotice) bool {
		return n.Email == "ada@example.com" && n.Link == "http://localhost:5173/verify?email=ada%40example.com"
	})).Return(nil).Once()

	h := newTestHandlers(env, false, notifier)

	var resp *accounts.RegisterAccountResponse
	err := h.Register.Execute(context.Background(), accounts.RegisterAccountMessage{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "secret",
		OnResponse: func(r *accounts.RegisterAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, accounts.StatusUnverified, resp.Account.Status)
	assert.Equal(t, "ada@example.com", resp.Account.Email)

	stored, err := env.store.FindByID(context.Background(), resp.Account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NoError(t, env.hasher.ComparePasswordAndHash("secret", stored.PasswordHash))

	assert.Contains(t, env.sink.Types(), accounts.ActivityEventAccountRegistered)
	notifier.AssertExpectations(t)
}

func TestRegisterAccountHandlerNotifierFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	notifier := &MockNotifier{}
	notifier.On("NotifyVerification", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	h := newTestHandlers(env, false, notifier)

	err := h.Register.Execute(context.Background(), accounts.RegisterAccountMessage{
		Name: "Ada", Email: "ada@example.com", Password: "secret",
	})
	require.NoError(t, err)

	_, err = env.store.FindByEmail(context.Background(), "ada@example.com")
	assert.NoError(t, err)
}

func TestRegisterAccountHandlerValidation(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHandlers(env, false, nil)

	err := h.Register.Execute(context.Background(), accounts.RegisterAccountMessage{
		Name:  "",
		Email: "not-an-email",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrValidation)

	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "name")
	assert.Contains(t, verrs, "email")
	assert.Contains(t, verrs, "password")
}

func TestRegisterAccountHandlerDuplicate(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHandlers(env, false, nil)
	msg := accounts.RegisterAccountMessage{Name: "Ada", Email: "ada@example.com", Password: "secret"}

	require.NoError(t, h.Register.Execute(context.Background(), msg))

	msg.Email = "ADA@example.com"
	err := h.Register.Execute(context.Background(), msg)
	assert.ErrorIs(t, err, accounts.ErrConflict)
}

func TestRegisterAccountHandlerDeterministicIDs(t *testing.T) {
	register := func(email string) uuid.UUID {
		env := newTestEnv(t)
		h := newTestHandlers(env, false, nil)
		h.Register.WithDeterministicIDs(true)

		var id uuid.UUID
		require.NoError(t, h.Register.Execute(context.Background(), accounts.RegisterAccountMessage{
			Name: "Ada", Email: email, Password: "secret",
			OnResponse: func(r *accounts.RegisterAccountResponse) { id = r.Account.ID },
		}))
		return id
	}

	first := register("ada@example.com")
	second := register("Ada@Example.com")
	assert.NotEqual(t, uuid.Nil, first)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, register("grace@example.com"))
}

func TestVerifyAccountHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createAccount(t, "Ada", "ada@example.com", "secret", accounts.StatusUnverified)
	h := newTestHandlers(env, false, nil)

	var verified *accounts.Account
	err := h.Verify.Execute(ctx, accounts.VerifyAccountMessage{
		Email:      "ada@example.com",
		OnResponse: func(a *accounts.Account) { verified = a },
	})
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, accounts.StatusActive, verified.Status)

	// idempotent
	require.NoError(t, h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "ada@example.com"}))

	found, err := env.store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusActive, found.Status)

	verifiedEvents := 0
	for _, et := range env.sink.Types() {
		if et == accounts.ActivityEventAccountVerified {
			verifiedEvents++
		}
	}
	assert.Equal(t, 1, verifiedEvents)
}

func TestVerifyAccountHandlerUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pending := env.createAccount(t, "Ada", "ada@example.com", "secret", accounts.StatusUnverified)
	blocked := env.createAccount(t, "Grace", "grace@example.com", "secret", accounts.StatusBlocked)
	h := newTestHandlers(env, false, nil)

	before, err := env.store.List(ctx)
	require.NoError(t, err)

	err = h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, accounts.ErrNotFound)

	err = h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: " "})
	assert.ErrorIs(t, err, accounts.ErrValidation)

	after, err := env.store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	found, err := env.store.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusUnverified, found.Status)
	assert.True(t, found.LastLoginAt.Equal(pending.LastLoginAt))

	found, err = env.store.FindByID(ctx, blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusBlocked, found.Status)

	assert.Empty(t, env.sink.Types())
}

func TestVerifyAccountHandlerBlockedAccount(t *testing.T) {
	t.Run("permissive lifts the block", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.createAccount(t, "Ada", "ada@example.com", "secret", accounts.StatusBlocked)
		h := newTestHandlers(env, false, nil)

		require.NoError(t, h.Verify.Execute(context.Background(), accounts.VerifyAccountMessage{Email: "ada@example.com"}))

		found, err := env.store.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusActive, found.Status)
	})

	t.Run("strict keeps the block", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.createAccount(t, "Ada", "ada@example.com", "secret", accounts.StatusBlocked)
		h := newTestHandlers(env, true, nil)

		err := h.Verify.Execute(context.Background(), accounts.VerifyAccountMessage{Email: "ada@example.com"})
		assert.ErrorIs(t, err, accounts.ErrInvalidTransition)

		found, err := env.store.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusBlocked, found.Status)
	})
}

func TestBulkStatusHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := newTestHandlers(env, false, nil)

	a := env.createAccount(t, "A", "a@example.com", "secret", accounts.StatusActive)
	b := env.createAccount(t, "B", "b@example.com", "secret", accounts.StatusUnverified)

	n, err := h.Status.Block(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	event := env.sink.Last()
	assert.Equal(t, accounts.ActivityEventBulkStatusChanged, event.EventType)
	assert.Equal(t, 2, event.Metadata["count"])

	n, err = h.Status.Unblock(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// unblocking always lands on Active, even for never verified accounts
	found, err := env.store.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusActive, found.Status)

	n, err = h.Status.Block(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = h.Status.Execute(ctx, accounts.BulkStatusMessage{Status: "Archived"})
	assert.ErrorIs(t, err, accounts.ErrValidation)
}

func TestBulkStatusHandlerStrict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := newTestHandlers(env, true, nil)

	blocked := env.createAccount(t, "A", "a@example.com", "secret", accounts.StatusBlocked)
	unverified := env.createAccount(t, "B", "b@example.com", "secret", accounts.StatusUnverified)

	n, err := h.Status.Unblock(ctx, []uuid.UUID{blocked.ID, unverified.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Unverified -> Active and Blocked -> Active are both allowed")

	var count int
	require.NoError(t, h.Status.Execute(ctx, accounts.BulkStatusMessage{
		IDs:        []uuid.UUID{blocked.ID, unverified.ID},
		Status:     accounts.StatusUnverified,
		OnResponse: func(r *accounts.BulkResult) { count = r.Count },
	}))
	assert.Zero(t, count, "nothing may move back to Unverified")

	n, err = h.Status.Block(ctx, []uuid.UUID{blocked.ID, unverified.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteAccountsHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := newTestHandlers(env, false, nil)

	a := env.createAccount(t, "A", "a@example.com", "secret", accounts.StatusActive)
	env.createAccount(t, "B", "b@example.com", "secret", accounts.StatusActive)

	var count int
	err := h.Delete.Execute(ctx, accounts.DeleteAccountsMessage{
		IDs:        []uuid.UUID{a.ID, uuid.New()},
		OnResponse: func(r *accounts.BulkResult) { count = r.Count },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, accounts.ActivityEventAccountsDeleted, env.sink.Last().EventType)

	var records []*accounts.Account
	require.NoError(t, h.List.Execute(ctx, accounts.ListAccountsMessage{
		OnResponse: func(list []*accounts.Account) { records = list },
	}))
	assert.Len(t, records, 1)
}

func TestPurgeUnverifiedHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := newTestHandlers(env, false, nil)

	env.createAccount(t, "A", "a@example.com", "secret", accounts.StatusUnverified)
	env.createAccount(t, "B", "b@example.com", "secret", accounts.StatusUnverified)
	env.createAccount(t, "C", "c@example.com", "secret", accounts.StatusBlocked)

	var count int
	purge := accounts.PurgeUnverifiedMessage{OnResponse: func(r *accounts.BulkResult) { count = r.Count }}

	require.NoError(t, h.Purge.Execute(ctx, purge))
	assert.Equal(t, 2, count)
	assert.Equal(t, accounts.ActivityEventUnverifiedPurged, env.sink.Last().EventType)

	require.NoError(t, h.Purge.Execute(ctx, purge))
	assert.Zero(t, count)
}

func TestHandlersHonorCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHandlers(env, false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.Register.Execute(ctx, accounts.RegisterAccountMessage{Name: "A", Email: "a@example.com", Password: "x"}), context.Canceled)
	assert.ErrorIs(t, h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "a@example.com"}), context.Canceled)
	assert.ErrorIs(t, h.Status.Execute(ctx, accounts.BulkStatusMessage{Status: accounts.StatusBlocked}), context.Canceled)
	assert.ErrorIs(t, h.Delete.Execute(ctx, accounts.DeleteAccountsMessage{}), context.Canceled)
	assert.ErrorIs(t, h.Purge.Execute(ctx, accounts.PurgeUnverifiedMessage{}), context.Canceled)
	assert.ErrorIs(t, h.List.Execute(ctx, accounts.ListAccountsMessage{}), context.Canceled)

	err := h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "a@example.com"})
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryOperation))
}

func TestHandlersCategorizeErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "Ada", "ada@example.com", "secret", accounts.StatusBlocked)
	h := newTestHandlers(env, false, nil)
	strict := newTestHandlers(env, true, nil)

	err := h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "nobody@example.com"})
	assert.True(t, goerrors.IsNotFound(err))
	assert.ErrorIs(t, err, accounts.ErrNotFound)

	err = h.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: ""})
	assert.True(t, goerrors.IsValidation(err))
	assert.ErrorIs(t, err, accounts.ErrValidation)

	err = h.Register.Execute(ctx, accounts.RegisterAccountMessage{Name: "Ada", Email: "not-an-email", Password: "x"})
	assert.True(t, goerrors.IsValidation(err))
	var verrs validation.Errors
	assert.True(t, errors.As(err, &verrs))

	err = h.Register.Execute(ctx, accounts.RegisterAccountMessage{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))
	assert.ErrorIs(t, err, accounts.ErrConflict)

	err = strict.Verify.Execute(ctx, accounts.VerifyAccountMessage{Email: "ada@example.com"})
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))
	assert.ErrorIs(t, err, accounts.ErrInvalidTransition)

	err = h.Status.Execute(ctx, accounts.BulkStatusMessage{Status: accounts.AccountStatus("archived")})
	assert.True(t, goerrors.IsValidation(err))
	assert.ErrorIs(t, err, accounts.ErrValidation)
}
