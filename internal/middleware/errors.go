package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/dto"
)

// ErrorHandler renders every error as {"error", "kind", "message"}. Details
// of 5xx failures are logged, never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	kind := apperr.KindInternal
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if e, ok := apperr.As(err); ok {
		kind, code, message = e.Kind, e.Status(), e.Message
	} else if errors.As(err, &fe) {
		code, message = fe.Code, fe.Message
		kind = kindForStatus(code)
	}

	if code >= fiber.StatusInternalServerError {
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			attrs = append(attrs, "request_id", rid)
		}
		if user := authctx.CurrentUser(c); user != nil {
			attrs = append(attrs, "user_id", user.ID.String())
		}
		slog.Error("request failed", attrs...)
		if kind == apperr.KindInternal {
			message = "Internal server error"
		}
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Kind:    string(kind),
		Message: message,
	})
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case fiber.StatusBadRequest:
		return apperr.KindBadRequest
	case fiber.StatusUnauthorized:
		return apperr.KindUnauthenticated
	case fiber.StatusForbidden:
		return apperr.KindForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case fiber.StatusConflict:
		return apperr.KindConflict
	case fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return apperr.KindValidation
	case fiber.StatusTooManyRequests:
		return apperr.KindRateLimited
	case fiber.StatusServiceUnavailable:
		return apperr.KindUpstream
	default:
		if code < fiber.StatusInternalServerError {
			return apperr.KindBadRequest
		}
		return apperr.KindInternal
	}
}
