package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyAccountMessage struct {
	Email      string `json:"email"`
	OnResponse func(account *Account)
}

func (e VerifyAccountMessage) Type() string { return "account.verify" }

// VerifyAccountHandler moves an account to Active when its owner follows
// the verification link. Verifying an Active account is a no-op.
type VerifyAccountHandler struct {
	repo RepositoryManager
	sm   AccountStateMachine
	commandDeps
}

func NewVerifyAccountHandler(repo RepositoryManager, sm AccountStateMachine, opts ...CommandOption) *VerifyAccountHandler {
	return &VerifyAccountHandler{
		repo:        repo,
		sm:          sm,
		commandDeps: newCommandDeps(opts),
	}
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	if err := checkContext(ctx, "account verification"); err != nil {
		return err
	}
	return commandError(h.execute(ctx, event), "account verification failed")
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	if NormalizeEmail(event.Email) == "" {
		return goerrors.Wrap(ErrValidation, goerrors.CategoryValidation, "email is required")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	account, err := h.repo.Accounts().FindByEmail(ctx, event.Email)
	if err != nil {
		return err
	}

	from := account.Status
	actor := actorFromAccount(account)

	account, err = h.sm.Transition(ctx, actor, account, StatusActive,
		WithTransitionReason("email verification"),
		WithBeforeTransitionHook(h.rejectBlocked),
	)
	if err != nil {
		return err
	}

	if from != StatusActive {
		h.record(ctx, ActivityEvent{
			EventType:  ActivityEventAccountVerified,
			Actor:      actor,
			AccountID:  account.ID.String(),
			FromStatus: from,
			ToStatus:   account.Status,
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

// rejectBlocked keeps verification from lifting a block when transitions are strict.
func (h *VerifyAccountHandler) rejectBlocked(_ context.Context, tc TransitionContext) error {
	if h.sm.Strict() && tc.From == StatusBlocked {
		return goerrors.Wrap(ErrInvalidTransition, goerrors.CategoryConflict, "blocked accounts cannot be verified")
	}
	return nil
}
