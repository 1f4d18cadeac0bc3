package accounts

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterAccountRoutes mounts the auth, admin and health routes on app.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountsControllerOption) *AccountsController {
	controller := NewAccountsController(opts...)

	app.Get(controller.Routes.Health, controller.handle(controller.Health))

	api := app.Group(controller.Routes.Prefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", controller.handle(controller.Register))
	authGroup.Post("/verify", controller.handle(controller.Verify))
	authGroup.Post("/login", controller.handle(controller.Login))

	requireAccount := RequireAccount(controller.ErrorHandler)

	users := api.Group("/users")
	users.Get("/", controller.handle(controller.ListAccounts), requireAccount)
	users.Post("/block", controller.handle(controller.Block), requireAccount)
	users.Post("/unblock", controller.handle(controller.Unblock), requireAccount)
	users.Post("/delete", controller.handle(controller.Delete), requireAccount)
	users.Post("/delete-unverified", controller.handle(controller.DeleteUnverified), requireAccount)

	return controller
}

type AccountsControllerRoutes struct {
	Prefix string
	Health string
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	Handlers     Handlers
	Routes       *AccountsControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerDebug dumps request payloads and results to the log
func WithControllerDebug(debug bool) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Debug = debug
		return c
	}
}

// WithControllerAuthenticator sets the Authenticator used by login
func WithControllerAuthenticator(auther Authenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = auther
		return c
	}
}

// WithControllerHandlers sets the command handlers
func WithControllerHandlers(h Handlers) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Handlers = h
		return c
	}
}

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger: defLogger(),
		Routes: &AccountsControllerRoutes{
			Prefix: "/api",
			Health: "/healthz",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = RouteErrorHandler(c.Logger)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in accounts controller...")
	}

	h := c.Handlers
	if h.Register == nil || h.Verify == nil || h.Status == nil || h.Delete == nil || h.Purge == nil || h.List == nil {
		panic("Missing command handlers in accounts controller...")
	}

	return c
}

// WithControllerErrorHandler sets the renderer for handler errors
func WithControllerErrorHandler(handler router.ErrorHandler) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.ErrorHandler = handler
		return c
	}
}

func (a *AccountsController) handle(h router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		if err := h(ctx); err != nil {
			return a.ErrorHandler(ctx, err)
		}
		return nil
	}
}

func (a *AccountsController) debug(label string, v any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug(label, "payload", print.MaybePrettyJSON(v))
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountsController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := bindJSON(ctx, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	a.debug("register request", RegisterRequest{Name: payload.Name, Email: payload.Email})

	var created *Account
	err := a.Handlers.Register.Execute(ctx.Context(), RegisterAccountMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *RegisterAccountResponse) {
			created = resp.Account
		},
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Registration successful",
		"userId":  created.ID,
	})
}

func (a *AccountsController) Verify(ctx router.Context) error {
	email := ctx.Query("email", "")
	if email == "" {
		return fmt.Errorf("%w: email query parameter is required", ErrValidation)
	}

	if err := a.Handlers.Verify.Execute(ctx.Context(), VerifyAccountMessage{Email: email}); err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Account verified successfully!",
	})
}

func (a *AccountsController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := bindJSON(ctx, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	a.debug("login result", result.Account.Summary())

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": result.Token,
		"user":  result.Account.Summary(),
	})
}

func (a *AccountsController) ListAccounts(ctx router.Context) error {
	var records []*Account
	err := a.Handlers.List.Execute(ctx.Context(), ListAccountsMessage{
		OnResponse: func(accounts []*Account) {
			records = accounts
		},
	})
	if err != nil {
		return err
	}

	if records == nil {
		records = []*Account{}
	}

	return ctx.JSON(router.StatusOK, records)
}

func (a *AccountsController) Block(ctx router.Context) error {
	return a.bulkStatus(ctx, StatusBlocked, "Users blocked")
}

func (a *AccountsController) Unblock(ctx router.Context) error {
	return a.bulkStatus(ctx, StatusActive, "Users unblocked")
}

func (a *AccountsController) bulkStatus(ctx router.Context, status AccountStatus, message string) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}

	a.debug("bulk status request", map[string]any{"status": status, "ids": ids})

	var count int
	err = a.Handlers.Status.Execute(ctx.Context(), BulkStatusMessage{
		IDs:    ids,
		Status: status,
		OnResponse: func(resp *BulkResult) {
			count = resp.Count
		},
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": message,
		"count":   count,
	})
}

func (a *AccountsController) Delete(ctx router.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}

	var count int
	err = a.Handlers.Delete.Execute(ctx.Context(), DeleteAccountsMessage{
		IDs: ids,
		OnResponse: func(resp *BulkResult) {
			count = resp.Count
		},
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Users deleted",
		"count":   count,
	})
}

func (a *AccountsController) DeleteUnverified(ctx router.Context) error {
	var count int
	err := a.Handlers.Purge.Execute(ctx.Context(), PurgeUnverifiedMessage{
		OnResponse: func(resp *BulkResult) {
			count = resp.Count
		},
	})
	if err != nil {
		return err
	}

	message := "No unverified users found."
	if count > 0 {
		message = fmt.Sprintf("Deleted %d unverified users.", count)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": message,
		"count":   count,
	})
}

func (a *AccountsController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{"status": "ok"})
}

func bindJSON(ctx router.Context, out any) error {
	if err := json.Unmarshal(ctx.Body(), out); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", ErrValidation, err)
	}
	return nil
}

func bindIDs(ctx router.Context) ([]uuid.UUID, error) {
	body := ctx.Body()
	if len(body) == 0 {
		return nil, nil
	}

	var raw []string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of ids: %v", ErrValidation, err)
	}
	return ParseAccountIDs(raw)
}
