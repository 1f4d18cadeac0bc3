package accounts

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	messageConflict           = "This email is already taken."
	messageNotFound           = "User not found."
	messageInvalidCredentials = "Invalid email or password."
	messageBlocked            = "Your account is blocked."
	messageUnauthorized       = "Authentication required."
	messageInvalidToken       = "Invalid or expired token."
	messageValidation         = "Invalid request."
	messageInvalidTransition  = "Status change not allowed."
	messageInternal           = "An unexpected server error occurred"
)

// PublicMessage returns the client facing message for err
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConflict(err):
		return messageConflict
	case IsNotFound(err):
		return messageNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return messageInvalidCredentials
	case errors.Is(err, ErrAccountBlocked):
		return messageBlocked
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenMalformed):
		return messageInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return messageUnauthorized
	case errors.Is(err, ErrValidation):
		return messageValidation
	case errors.Is(err, ErrInvalidTransition):
		return messageInvalidTransition
	default:
		return messageInternal
	}
}

// ErrorHandler renders errors as {"message": ...} JSON with the status code
// mapped from the error. Validation failures carry a per field errors map.
// It handles errors raised by fiber itself, route handlers use RouteErrorHandler.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		code, body := errorResponse(err)
		logRequestError(logger, c.Method(), c.Path(), code, err, body)
		return c.Status(code).JSON(body)
	}
}

// RouteErrorHandler renders errors returned by router handlers the same
// way ErrorHandler does.
func RouteErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(ctx router.Context, err error) error {
		code, body := errorResponse(err)
		logRequestError(logger, ctx.Method(), ctx.Path(), code, err, body)
		return ctx.JSON(code, body)
	}
}

func errorResponse(err error) (int, map[string]any) {
	code := StatusCodeFromError(err)
	body := map[string]any{"message": PublicMessage(err)}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		body["message"] = fe.Message
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		body["errors"] = verrs
	}

	if code >= fiber.StatusInternalServerError {
		body["message"] = messageInternal
	}

	return code, body
}

func logRequestError(logger Logger, method, path string, code int, err error, body map[string]any) {
	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			"method", method,
			"path", path,
			"category", ErrorCategory(err).String(),
			"error", err,
		)
		return
	}

	logger.Debug("request rejected",
		"path", path,
		"status", code,
		"category", ErrorCategory(err).String(),
		"error", err.Error(),
		"details", print.MaybePrettyJSON(body),
	)
}

// InitRoutes mounts the registered routes on servers that defer it until
// they start serving.
func InitRoutes[T any](srv router.Server[T]) {
	if initializer, ok := any(srv).(interface{ Init() }); ok {
		initializer.Init()
	}
}
