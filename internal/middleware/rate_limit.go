package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/utils"
)

// RateLimit limits each signed-in user, or each client IP for anonymous
// callers, to max requests per window under the named limiter. Rejections
// carry Retry-After and the usual error envelope.
func RateLimit(name string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + rateLimitSubject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(name).Inc()
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}

func rateLimitSubject(c *fiber.Ctx) string {
	if id := UserID(c); id > 0 {
		return fmt.Sprintf("user-%d", id)
	}
	return "ip-" + c.IP()
}
