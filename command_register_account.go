package accounts

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate checks the registration payload
func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

type RegisterAccountResponse struct {
	Account *Account
	Link    string
}

// RegisterAccountHandler creates Unverified accounts and sends the verification link
type RegisterAccountHandler struct {
	repo             RepositoryManager
	hasher           PasswordHasher
	notifier         Notifier
	clientURL        string
	deterministicIDs bool
	commandDeps
}

// NewRegisterAccountHandler builds the handler. A nil notifier logs the link.
func NewRegisterAccountHandler(repo RepositoryManager, hasher PasswordHasher, notifier Notifier, clientURL string, opts ...CommandOption) *RegisterAccountHandler {
	deps := newCommandDeps(opts)
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: deps.logger}
	}
	return &RegisterAccountHandler{
		repo:        repo,
		hasher:      hasher,
		notifier:    notifier,
		clientURL:   clientURL,
		commandDeps: deps,
	}
}

// WithDeterministicIDs derives account ids from the email address.
// An email that is deleted and registered again gets its old id back.
// The gatekeeper rejects tokens issued before the current record was
// registered, so sessions of the deleted account stay invalid.
func (h *RegisterAccountHandler) WithDeterministicIDs(enabled bool) *RegisterAccountHandler {
	h.deterministicIDs = enabled
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := checkContext(ctx, "account registration"); err != nil {
		return err
	}
	return commandError(h.execute(ctx, event), "account registration failed")
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(fmt.Errorf("%w: %w", ErrValidation, err), goerrors.CategoryValidation, "invalid registration payload")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, ErrorCategory(err), "failed to hash password")
	}

	account := &Account{
		Name:         event.Name,
		Email:        NormalizeEmail(event.Email),
		PasswordHash: hash,
	}

	if h.deterministicIDs {
		if id, err := hashid.NewUUID(account.Email); err == nil {
			account.ID = id
		} else {
			h.logger.Warn("hashid generation failed, using random id", "error", err)
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Accounts().CreateTx(ctx, tx, account)
		if err != nil {
			return err
		}
		account = created
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			return err
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	link := VerificationLink(h.clientURL, account.Email)
	if err := h.notifier.NotifyVerification(ctx, VerificationNotice{
		AccountID: account.ID.String(),
		Name:      account.Name,
		Email:     account.Email,
		Link:      link,
	}); err != nil {
		h.logger.Error("verification notice failed", "account_id", account.ID.String(), "error", err)
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     actorFromAccount(account),
		AccountID: account.ID.String(),
		ToStatus:  account.Status,
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{Account: account, Link: link})
	}

	return nil
}
