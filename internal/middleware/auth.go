package middleware

import (
	"strings"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/services"
)

const tokenLocalsKey = "session_token"

// Authenticated resolves the bearer credential to a user: a development token
// first, then a session JWT. Any failure is a uniform 401.
func Authenticated(cfg *config.Config, auth *services.AuthService) []fiber.Handler {
	return []fiber.Handler{DevToken(auth), JWTProtected(cfg, auth)}
}

// DevToken accepts dev_token_user_<id> bearer tokens. Anything it does not
// recognise falls through to session token verification.
func DevToken(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, ok := auth.ResolveDevToken(bearerToken(c)); ok {
			authctx.SetUser(c, user)
		}
		return c.Next()
	}
}

func JWTProtected(cfg *config.Config, auth *services.AuthService) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter: func(c *fiber.Ctx) bool {
			return authctx.CurrentUser(c) != nil
		},
		SigningKey: jwtware.SigningKey{
			JWTAlg: cfg.JWTAlgorithm,
			Key:    []byte(cfg.JWTSecret),
		},
		ContextKey: tokenLocalsKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, _ := c.Locals(tokenLocalsKey).(*jwt.Token)
			user, err := auth.UserFromToken(token)
			if err != nil {
				return err
			}
			authctx.SetUser(c, user)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperr.Unauthenticated()
		},
	})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
