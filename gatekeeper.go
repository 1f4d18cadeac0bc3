package accounts

import (
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	// CurrentAccountKey is the router locals key holding the resolved account
	CurrentAccountKey = "current_account"

	// GatekeeperRejectionMessage is the body message sent to blocked or deleted accounts
	GatekeeperRejectionMessage = "User is blocked or deleted."

	defaultTokenHeader = router.HeaderAuthorization
	defaultAuthScheme  = "Bearer"
)

// Gatekeeper is a request middleware that rejects requests carrying a
// session token of a blocked or deleted account. Requests without a
// recognizable token are not examined.
type Gatekeeper struct {
	finder       AccountFinder
	tokens       TokenValidator
	header       string
	scheme       string
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time

	// Filter skips the gatekeeper when it returns true
	Filter func(ctx router.Context) bool
}

// NewGatekeeper builds a gatekeeper. cfg may be nil to use the
// Authorization header with the Bearer scheme.
func NewGatekeeper(finder AccountFinder, tokens TokenValidator, cfg GatekeeperConfig) *Gatekeeper {
	g := &Gatekeeper{
		finder:       finder,
		tokens:       tokens,
		header:       defaultTokenHeader,
		scheme:       defaultAuthScheme,
		logger:       defLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	if cfg != nil {
		if h := strings.TrimSpace(cfg.GetTokenHeader()); h != "" {
			g.header = h
		}
		if s := strings.TrimSpace(cfg.GetAuthScheme()); s != "" {
			g.scheme = s
		}
	}

	return g
}

func (g *Gatekeeper) WithLogger(logger Logger) *Gatekeeper {
	g.logger = normalizeLogger(logger)
	return g
}

// WithActivitySink records every rejection to sink
func (g *Gatekeeper) WithActivitySink(sink ActivitySink) *Gatekeeper {
	g.activitySink = normalizeActivitySink(sink)
	return g
}

// Middleware returns the gatekeeper as router middleware
func (g *Gatekeeper) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.Filter != nil && g.Filter(ctx) {
				return next(ctx)
			}

			raw, ok := g.extractToken(ctx)
			if !ok {
				return next(ctx)
			}

			claims, err := g.tokens.Validate(raw)
			if err != nil {
				g.logger.Debug("gatekeeper ignoring unrecognized token", "error", err)
				return next(ctx)
			}

			id, err := claims.AccountID()
			if err != nil || id == uuid.Nil {
				g.logger.Debug("gatekeeper ignoring token without account id", "sub", claims.UserID())
				return next(ctx)
			}

			account, err := g.finder.FindByID(ctx.Context(), id)
			if err != nil {
				if IsNotFound(err) {
					return g.reject(ctx, id, "deleted")
				}
				g.logger.Error("gatekeeper account lookup failed", "account_id", id.String(), "error", err)
				return ctx.JSON(router.StatusInternalServerError, map[string]any{
					"message": messageInternal,
				})
			}

			if account.IsBlocked() {
				return g.reject(ctx, id, "blocked")
			}

			if issuedBeforeRegistration(claims, account) {
				return g.reject(ctx, id, "reissued")
			}

			ctx.Locals(CurrentAccountKey, account)
			ctx.SetContext(WithClaimsContext(WithContext(ctx.Context(), account), claims))

			return next(ctx)
		}
	}
}

// issuedBeforeRegistration reports whether the token predates the account
// record. A deleted account re-registered under the same id must not accept
// sessions issued to the old record.
func issuedBeforeRegistration(claims *SessionClaims, account *Account) bool {
	if claims.IssuedAt == nil || account.RegisteredAt.IsZero() {
		return false
	}
	return claims.IssuedAt.Time.Before(account.RegisteredAt.Truncate(time.Second))
}

func (g *Gatekeeper) extractToken(ctx router.Context) (string, bool) {
	value := strings.TrimSpace(ctx.Header(g.header))
	l := len(g.scheme)
	if len(value) <= l+1 || !strings.EqualFold(value[:l], g.scheme) || value[l] != ' ' {
		return "", false
	}

	token := strings.TrimSpace(value[l+1:])
	return token, token != ""
}

func (g *Gatekeeper) reject(ctx router.Context, id uuid.UUID, reason string) error {
	g.logger.Info("gatekeeper rejected request", "account_id", id.String(), "reason", reason, "path", ctx.Path())

	recordActivity(ctx.Context(), g.activitySink, g.logger, g.now, ActivityEvent{
		EventType: ActivityEventGatekeeperRejection,
		Actor:     ActorRef{ID: id.String(), Type: "account"},
		AccountID: id.String(),
		Metadata: map[string]any{
			"reason": reason,
			"method": ctx.Method(),
			"path":   ctx.Path(),
		},
	})

	return ctx.JSON(router.StatusUnauthorized, map[string]any{
		"message": GatekeeperRejectionMessage,
	})
}

// CurrentAccount returns the account the gatekeeper resolved for this request
func CurrentAccount(ctx router.Context) (*Account, bool) {
	account, ok := ctx.Locals(CurrentAccountKey).(*Account)
	return account, ok && account != nil
}

// RequireAccount rejects requests for which the gatekeeper did not resolve an account.
func RequireAccount(errorHandler router.ErrorHandler) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = RouteErrorHandler(nil)
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := CurrentAccount(ctx); !ok {
				return errorHandler(ctx, ErrUnauthorized)
			}
			return next(ctx)
		}
	}
}
