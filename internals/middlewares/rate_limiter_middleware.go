package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"longessay_backend/internals/configs"
	helper "longessay_backend/internals/helpers"
)

// Global limiter: every endpoint, keyed by client IP
func GlobalRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        configs.GetEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, "Too many requests, try again later.")
		},
	})
}

// Mutations: keyed by the JWT user, falling back to client IP
func ChangesRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        configs.GetEnvInt("CHANGES_LIMIT_PER_MINUTE", 30),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if uk, ok := c.Locals("user_id").(string); ok && uk != "" {
				return "u:" + uk
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, "Too many submissions, try again in a minute.")
		},
	})
}
