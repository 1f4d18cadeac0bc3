package accounts

import (
	"context"
)

type ListAccountsMessage struct {
	OnResponse func(accounts []*Account)
}

func (e ListAccountsMessage) Type() string { return "account.list" }

// ListAccountsHandler returns every account, most recent login first
type ListAccountsHandler struct {
	repo RepositoryManager
	commandDeps
}

func NewListAccountsHandler(repo RepositoryManager, opts ...CommandOption) *ListAccountsHandler {
	return &ListAccountsHandler{
		repo:        repo,
		commandDeps: newCommandDeps(opts),
	}
}

func (h *ListAccountsHandler) Execute(ctx context.Context, event ListAccountsMessage) error {
	if err := checkContext(ctx, "account listing"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	records, err := h.repo.Accounts().List(ctx)
	if err != nil {
		return commandError(err, "account listing failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(records)
	}

	return nil
}
