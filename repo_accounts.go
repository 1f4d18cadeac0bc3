package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

var deleteAccountsByIDSQL = `DELETE FROM "accounts" WHERE "id" IN (?) RETURNING *;`

var listAccountsSQL = `SELECT * FROM "accounts" ORDER BY "last_login_at" DESC;`

// Accounts is the account store. It owns every Account record; other
// components read and mutate accounts only through it.
type Accounts interface {
	AccountFinder

	Create(ctx context.Context, name, email, passwordHash string, opts ...CreateOption) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)

	SetStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)
	SetStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus) (*Account, error)

	TouchLogin(ctx context.Context, id uuid.UUID) error
	TouchLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	BulkSetStatus(ctx context.Context, ids []uuid.UUID, status AccountStatus, opts ...BulkStatusOption) (int, error)
	BulkSetStatusTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID, status AccountStatus, opts ...BulkStatusOption) (int, error)

	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error)
	DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) (int, error)

	DeleteAllWithStatus(ctx context.Context, status AccountStatus) (int, error)
	DeleteAllWithStatusTx(ctx context.Context, tx bun.IDB, status AccountStatus) (int, error)

	List(ctx context.Context) ([]*Account, error)
	ListTx(ctx context.Context, tx bun.IDB) ([]*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*accounts)(nil)

// AccountsOption customizes the repository
type AccountsOption func(*accounts)

// WithAccountsClock injects the clock used for timestamps
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(a *accounts) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAccountsRepository returns the bun backed store
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := &accounts{
		Repository: NewAccountRecords(db),
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// CreateOption mutates a record before it is inserted
type CreateOption func(*Account)

// WithAccountID sets a caller chosen identifier
func WithAccountID(id uuid.UUID) CreateOption {
	return func(a *Account) {
		a.ID = id
	}
}

// BulkStatusOption customizes a bulk status update
type BulkStatusOption func(*bulkStatusOptions)

type bulkStatusOptions struct {
	from []AccountStatus
}

// OnlyFromStatuses restricts a bulk update to rows currently in one of from.
func OnlyFromStatuses(from ...AccountStatus) BulkStatusOption {
	return func(o *bulkStatusOptions) {
		o.from = append(o.from, from...)
	}
}

func (a *accounts) timestamp() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}

func (a *accounts) Create(ctx context.Context, name, email, passwordHash string, opts ...CreateOption) (*Account, error) {
	record := &Account{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: account is nil", ErrValidation)
	}

	a.prepareDefaults(record)

	// the unique index is authoritative, this only avoids a failed insert
	exists, err := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", record.Email).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrConflict, record.Email)
	}

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, record.Email)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return created, nil
}

func (a *accounts) prepareDefaults(record *Account) {
	record.Email = NormalizeEmail(record.Email)
	record.Status = StatusUnverified

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := a.timestamp()
	record.RegisteredAt = now
	record.LastLoginAt = now
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty email", ErrNotFound)
	}

	record, err := a.Repository.GetByIdentifierTx(ctx, tx, normalized)
	if err != nil {
		return nil, lookupError(err, "email", normalized)
	}
	return record, nil
}

func (a *accounts) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: nil id", ErrNotFound)
	}

	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, lookupError(err, "id", id.String())
	}
	return record, nil
}

func (a *accounts) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: nil id", ErrNotFound)
	}
	return a.findOne(ctx, tx, "id", id.String())
}

func (a *accounts) findOne(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, lookupError(err, column, value)
	}
	return record, nil
}

// lookupError maps a missing row to ErrNotFound. The store error is not
// wrapped so callers only ever match the domain sentinel.
func lookupError(err error, column, value string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s=%s", ErrNotFound, column, value)
	}
	return fmt.Errorf("find account by %s: %w", column, err)
}

func (a *accounts) SetStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error) {
	return a.SetStatusTx(ctx, a.db, id, status)
}

func (a *accounts) SetStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus) (*Account, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown account status %q", ErrValidation, status)
	}

	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}

	return a.FindByIDTx(ctx, tx, id)
}

func (a *accounts) TouchLogin(ctx context.Context, id uuid.UUID) error {
	return a.TouchLoginTx(ctx, a.db, id)
}

func (a *accounts) TouchLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("last_login_at = ?", a.timestamp()).
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}

	return nil
}

func (a *accounts) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status AccountStatus, opts ...BulkStatusOption) (int, error) {
	return a.BulkSetStatusTx(ctx, a.db, ids, status, opts...)
}

func (a *accounts) BulkSetStatusTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID, status AccountStatus, opts ...BulkStatusOption) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown account status %q", ErrValidation, status)
	}

	keys := idStrings(ids)
	if len(keys) == 0 {
		return 0, nil
	}

	options := &bulkStatusOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("status = ?", string(status)).
		Where("id IN (?)", bun.In(keys))

	if len(options.from) > 0 {
		q = q.Where("status IN (?)", bun.In(statusStrings(options.from)))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	return rowsAffected(res), nil
}

func (a *accounts) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	return a.DeleteByIDsTx(ctx, a.db, ids)
}

func (a *accounts) DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) (int, error) {
	keys := idStrings(ids)
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := a.Repository.RawTx(ctx, tx, deleteAccountsByIDSQL, bun.In(keys))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("delete accounts: %w", err)
	}

	return len(deleted), nil
}

func (a *accounts) DeleteAllWithStatus(ctx context.Context, status AccountStatus) (int, error) {
	return a.DeleteAllWithStatusTx(ctx, a.db, status)
}

func (a *accounts) DeleteAllWithStatusTx(ctx context.Context, tx bun.IDB, status AccountStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown account status %q", ErrValidation, status)
	}

	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("status = ?", string(status)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete accounts by status: %w", err)
	}

	return rowsAffected(res), nil
}

func (a *accounts) List(ctx context.Context) ([]*Account, error) {
	return a.ListTx(ctx, a.db)
}

func (a *accounts) ListTx(ctx context.Context, tx bun.IDB) ([]*Account, error) {
	records, err := a.Repository.RawTx(ctx, tx, listAccountsSQL)
	if err != nil && !repository.IsRecordNotFound(err) && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if records == nil {
		records = make([]*Account, 0)
	}
	return records, nil
}

// NewAccountRecords returns the generic repository for Account rows.
// Emails are the natural identifier.
func NewAccountRecords(db *bun.DB) repository.Repository[*Account] {
	handlers := repository.ModelHandlers[*Account]{
		NewRecord: func() *Account {
			return &Account{}
		},
		GetID: func(record *Account) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Account, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	}
	return repository.NewRepository(db, handlers)
}

func idStrings(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id.String())
	}
	return out
}

func statusStrings(statuses []AccountStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func rowsAffected(res sql.Result) int {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
