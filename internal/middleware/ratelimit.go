package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/config"
)

// RateLimit allows max requests per minute per client IP.
func RateLimit(cfg *config.Config, max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return !cfg.RateLimitEnabled
		},
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return apperr.New(apperr.KindRateLimited, "Rate limit exceeded. Try again later.")
		},
	})
}

// ReadWriteLimit applies the read budget to safe methods and the write budget
// to everything else.
func ReadWriteLimit(cfg *config.Config) fiber.Handler {
	read := RateLimit(cfg, cfg.RateLimitRead)
	write := RateLimit(cfg, cfg.RateLimitWrite)
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return read(c)
		default:
			return write(c)
		}
	}
}
