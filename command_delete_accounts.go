package accounts

import (
	"context"

	"github.com/google/uuid"
)

type DeleteAccountsMessage struct {
	IDs        []uuid.UUID
	OnResponse func(resp *BulkResult)
}

func (e DeleteAccountsMessage) Type() string { return "account.delete" }

// DeleteAccountsHandler hard deletes accounts by id. Unknown ids are ignored.
type DeleteAccountsHandler struct {
	repo RepositoryManager
	commandDeps
}

func NewDeleteAccountsHandler(repo RepositoryManager, opts ...CommandOption) *DeleteAccountsHandler {
	return &DeleteAccountsHandler{
		repo:        repo,
		commandDeps: newCommandDeps(opts),
	}
}

func (h *DeleteAccountsHandler) Execute(ctx context.Context, event DeleteAccountsMessage) error {
	if err := checkContext(ctx, "account deletion"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	count, err := h.repo.Accounts().DeleteByIDs(ctx, event.IDs)
	if err != nil {
		return commandError(err, "account deletion failed")
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountsDeleted,
		Actor:     ActorFromContext(ctx),
		Metadata: map[string]any{
			"ids":   idStrings(event.IDs),
			"count": count,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&BulkResult{Count: count})
	}

	return nil
}

type PurgeUnverifiedMessage struct {
	OnResponse func(resp *BulkResult)
}

func (e PurgeUnverifiedMessage) Type() string { return "account.purge_unverified" }

// PurgeUnverifiedHandler deletes every account still Unverified
type PurgeUnverifiedHandler struct {
	repo RepositoryManager
	commandDeps
}

func NewPurgeUnverifiedHandler(repo RepositoryManager, opts ...CommandOption) *PurgeUnverifiedHandler {
	return &PurgeUnverifiedHandler{
		repo:        repo,
		commandDeps: newCommandDeps(opts),
	}
}

func (h *PurgeUnverifiedHandler) Execute(ctx context.Context, event PurgeUnverifiedMessage) error {
	if err := checkContext(ctx, "unverified purge"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	count, err := h.repo.Accounts().DeleteAllWithStatus(ctx, StatusUnverified)
	if err != nil {
		return commandError(err, "unverified purge failed")
	}

	if count > 0 {
		h.record(ctx, ActivityEvent{
			EventType:  ActivityEventUnverifiedPurged,
			Actor:      ActorFromContext(ctx),
			FromStatus: StatusUnverified,
			Metadata:   map[string]any{"count": count},
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(&BulkResult{Count: count})
	}

	return nil
}
