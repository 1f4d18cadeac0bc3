package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	DB() *bun.DB
}

var _ RepositoryManager = mngr{}

type mngr struct {
	db       *bun.DB
	accounts Accounts
}

// NewRepositoryManager builds the manager over db
func NewRepositoryManager(db *bun.DB, opts ...AccountsOption) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) DB() *bun.DB {
	return m.db
}

// CreateSchema creates the accounts table and its indexes when missing.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*Account)(nil)).
		Index("accounts_last_login_at_idx").
		Column("last_login_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create accounts last login index: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*Account)(nil)).
		Index("accounts_status_idx").
		Column("status").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create accounts status index: %w", err)
	}

	return nil
}
