package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
)

// App holds the wired server
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *bun.DB
	repo   accounts.RepositoryManager
	srv    router.Server[*fiber.App]
	http   *fiber.App
}

// NewApp opens the store, bootstraps the schema and builds the HTTP server
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(redacted(cfg)))

	if err := app.withPersistence(ctx); err != nil {
		return nil, err
	}

	app.withHTTPServer()

	return app, nil
}

func (a *App) withPersistence(ctx context.Context) error {
	db, err := openDB(a.cfg.Database)
	if err != nil {
		return err
	}

	if a.cfg.Database.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(os.Stderr),
		))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := accounts.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	a.db = db
	a.repo = accounts.NewRepositoryManager(db)
	a.repo.MustValidate()

	return nil
}

func openDB(cfg config.Database) (*bun.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (a *App) withHTTPServer() {
	logger := accounts.NewSlogLogger(a.logger)
	sink := activitymap.NewLogSink(logger.With("component", "activity"))

	store := a.repo.Accounts()
	hasher := accounts.NewBcryptHasher(a.cfg.Security.BcryptCost)

	sm := accounts.NewAccountStateMachine(store,
		accounts.WithStrictTransitions(a.cfg.Accounts.StrictTransitions),
		accounts.WithStateMachineActivitySink(sink),
		accounts.WithStateMachineLogger(logger.With("component", "state")),
	)

	tokens := accounts.NewTokenService(a.cfg.Auth,
		accounts.WithTokenLogger(logger.With("component", "tokens")),
	)

	auther := accounts.NewAuthenticator(store, tokens, hasher).
		WithLogger(logger.With("component", "auth")).
		WithActivitySink(sink)

	handlers := accounts.NewHandlers(accounts.HandlersConfig{
		Repo:             a.repo,
		StateMachine:     sm,
		Hasher:           hasher,
		Notifier:         accounts.LogNotifier{Logger: logger.With("component", "notifier")},
		ClientURL:        a.cfg.Server.ClientURL,
		DeterministicIDs: a.cfg.Accounts.DeterministicIDs,
	},
		accounts.WithCommandLogger(logger.With("component", "commands")),
		accounts.WithCommandActivitySink(sink),
	)

	gatekeeper := accounts.NewGatekeeper(store, tokens, a.cfg.Auth).
		WithLogger(logger.With("component", "gatekeeper")).
		WithActivitySink(sink)

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "accountsd",
			ReadTimeout:           a.cfg.Server.ReadTimeout.Duration,
			WriteTimeout:          a.cfg.Server.WriteTimeout.Duration,
			ErrorHandler:          accounts.ErrorHandler(logger.With("component", "http")),
			DisableStartupMessage: true,
		}))

		app.Use(recover.New())
		app.Use(requestid.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins(a.cfg.Server.ClientURL),
			AllowHeaders: strings.Join([]string{
				fiber.HeaderOrigin,
				fiber.HeaderContentType,
				fiber.HeaderAccept,
				a.cfg.Auth.TokenHeader,
			}, ", "),
		}))

		a.http = app
		return app
	})

	srv.Router().Use(gatekeeper.Middleware())

	accounts.RegisterAccountRoutes(srv.Router(),
		accounts.WithControllerLogger(logger.With("component", "controller")),
		accounts.WithControllerDebug(a.cfg.Server.Debug),
		accounts.WithControllerAuthenticator(auther),
		accounts.WithControllerHandlers(handlers),
	)
	accounts.InitRoutes(srv)

	a.srv = srv
}

// Serve blocks listening on the configured address
func (a *App) Serve() error {
	a.logger.Info("http server listening", "address", a.cfg.Server.Address)
	return a.srv.Serve(a.cfg.Server.Address)
}

// Shutdown stops the HTTP server and closes the database
func (a *App) Shutdown() error {
	var errs []error
	if a.http != nil {
		if err := a.http.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout.Duration); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func allowedOrigins(clientURL string) string {
	clientURL = strings.TrimRight(strings.TrimSpace(clientURL), "/")
	if clientURL == "" {
		return "*"
	}
	return clientURL
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "********"
	}
	return out
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
