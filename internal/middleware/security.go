package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/config"
)

func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	}
}

// HTTPSRedirect sends plain-HTTP requests to the HTTPS origin outside dev.
// X-Forwarded-Proto from the load balancer counts as the request scheme.
func HTTPSRedirect(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.IsDev() {
			return c.Next()
		}
		if c.Protocol() == "https" || c.Get(fiber.HeaderXForwardedProto) == "https" {
			return c.Next()
		}
		target := "https://" + c.Hostname() + c.Path()
		if query := c.Request().URI().QueryString(); len(query) > 0 {
			target += "?" + string(query)
		}
		return c.Redirect(target, fiber.StatusTemporaryRedirect)
	}
}
