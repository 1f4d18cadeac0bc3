package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	accounts "github.com/goliatone/go-accounts"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

type testConfig struct {
	key        string
	expiration int
	issuer     string
	audience   []string
}

func (c testConfig) GetSigningKey() string   { return c.key }
func (c testConfig) GetTokenExpiration() int { return c.expiration }
func (c testConfig) GetIssuer() string       { return c.issuer }
func (c testConfig) GetAudience() []string   { return c.audience }
func (c testConfig) GetAuthScheme() string   { return "Bearer" }
func (c testConfig) GetTokenHeader() string  { return "Authorization" }

func newTestConfig() testConfig {
	return testConfig{
		key:        testSigningKey,
		expiration: 1,
		issuer:     "go-accounts-test",
		audience:   []string{"tests"},
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, accounts.CreateSchema(context.Background(), db))
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []accounts.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last() accounts.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return accounts.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

type testEnv struct {
	db     *bun.DB
	clock  *testClock
	repo   accounts.RepositoryManager
	store  accounts.Accounts
	hasher accounts.BcryptHasher
	tokens *accounts.TokenServiceImpl
	sink   *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	clock := newTestClock()
	repo := accounts.NewRepositoryManager(db, accounts.WithAccountsClock(clock.Now))

	return &testEnv{
		db:     db,
		clock:  clock,
		repo:   repo,
		store:  repo.Accounts(),
		hasher: accounts.NewBcryptHasher(bcrypt.MinCost),
		tokens: accounts.NewTokenService(newTestConfig(), accounts.WithTokenClock(clock.Now)),
		sink:   &recordingSink{},
	}
}

func (e *testEnv) createAccount(t *testing.T, name, email, password string, status accounts.AccountStatus) *accounts.Account {
	t.Helper()

	hash, err := e.hasher.HashPassword(password)
	require.NoError(t, err)

	ctx := context.Background()
	account, err := e.store.Create(ctx, name, email, hash)
	require.NoError(t, err)

	if status != accounts.StatusUnverified {
		account, err = e.store.SetStatus(ctx, account.ID, status)
		require.NoError(t, err)
	}
	return account
}

// newRouterApp mounts routes through the fiber router adapter and returns
// the underlying fiber app for app.Test requests.
func newRouterApp(mount func(r router.Router[*fiber.App])) *fiber.App {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{ErrorHandler: accounts.ErrorHandler(nil)})
		return app
	})

	mount(srv.Router())
	accounts.InitRoutes(srv)
	return app
}
