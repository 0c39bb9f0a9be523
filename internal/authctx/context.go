// Package authctx carries the authenticated user on the request context.
package authctx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/models"
)

const userKey = "current_user"

func SetUser(c *fiber.Ctx, user *models.User) {
	c.Locals(userKey, user)
}

// CurrentUser returns the resolved user, or nil before authentication.
func CurrentUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(userKey).(*models.User); ok {
		return user
	}
	return nil
}

// RequireUser returns the resolved user or an Unauthenticated error.
func RequireUser(c *fiber.Ctx) (*models.User, error) {
	if user := CurrentUser(c); user != nil {
		return user, nil
	}
	return nil, apperr.Unauthenticated()
}
