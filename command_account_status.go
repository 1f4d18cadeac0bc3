package accounts

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type BulkStatusMessage struct {
	IDs        []uuid.UUID
	Status     AccountStatus
	OnResponse func(resp *BulkResult)
}

func (e BulkStatusMessage) Type() string { return "account.status.bulk" }

// BulkResult reports how many records an administrative operation touched
type BulkResult struct {
	Count int
}

// BulkStatusHandler overwrites the status of a set of accounts in one statement.
// Unknown ids are ignored. With strict transitions only rows whose current
// status may move to the target are updated.
type BulkStatusHandler struct {
	repo RepositoryManager
	sm   AccountStateMachine
	commandDeps
}

func NewBulkStatusHandler(repo RepositoryManager, sm AccountStateMachine, opts ...CommandOption) *BulkStatusHandler {
	return &BulkStatusHandler{
		repo:        repo,
		sm:          sm,
		commandDeps: newCommandDeps(opts),
	}
}

// Block sets ids to Blocked
func (h *BulkStatusHandler) Block(ctx context.Context, ids []uuid.UUID) (int, error) {
	return h.run(ctx, ids, StatusBlocked)
}

// Unblock sets ids to Active
func (h *BulkStatusHandler) Unblock(ctx context.Context, ids []uuid.UUID) (int, error) {
	return h.run(ctx, ids, StatusActive)
}

func (h *BulkStatusHandler) run(ctx context.Context, ids []uuid.UUID, status AccountStatus) (int, error) {
	var count int
	err := h.Execute(ctx, BulkStatusMessage{
		IDs:    ids,
		Status: status,
		OnResponse: func(resp *BulkResult) {
			count = resp.Count
		},
	})
	return count, err
}

func (h *BulkStatusHandler) Execute(ctx context.Context, event BulkStatusMessage) error {
	if err := checkContext(ctx, "bulk status update"); err != nil {
		return err
	}
	return commandError(h.execute(ctx, event), "bulk status update failed")
}

func (h *BulkStatusHandler) execute(ctx context.Context, event BulkStatusMessage) error {
	if !event.Status.Valid() {
		return goerrors.Wrap(ErrValidation, goerrors.CategoryValidation, fmt.Sprintf("unknown account status %q", event.Status))
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var opts []BulkStatusOption
	if sources := h.sm.AllowedSources(event.Status); sources != nil {
		opts = append(opts, OnlyFromStatuses(sources...))
	}

	count, err := h.repo.Accounts().BulkSetStatus(ctx, event.IDs, event.Status, opts...)
	if err != nil {
		return err
	}

	h.logger.Info("bulk status update", "status", string(event.Status), "requested", len(event.IDs), "affected", count)

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventBulkStatusChanged,
		Actor:     ActorFromContext(ctx),
		ToStatus:  event.Status,
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
