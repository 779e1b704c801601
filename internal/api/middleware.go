package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"

	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// RequestMetrics records one counter increment and one duration observation
// per request, labelled by route pattern so path parameters don't explode
// the cardinality.
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		metrics.HTTPRequests.WithLabelValues(c.Method(), c.Route().Path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), c.Route().Path, status).
			Observe(time.Since(start).Seconds())

		return err
	}
}

// RateLimiter covers the public read endpoints. Responses are cached in
// redis, so the ceiling is about protecting the database on cache misses.
func RateLimiter() fiber.Handler {
	return newLimiter(60, 1*time.Minute)
}

// AdminRateLimiter is much tighter: every scrape trigger spawns a full
// pipeline run against the upstream listing.
func AdminRateLimiter() fiber.Handler {
	return newLimiter(5, 1*time.Minute)
}

func newLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		},
	})
}

func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if err != nil {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			return c.Status(code).JSON(fiber.Map{
				"error": message,
				"code":  code,
			})
		}

		return nil
	}
}

// RequestID propagates an inbound X-Request-ID or mints one, exposing it to
// handlers via locals and to callers via the response header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("X-Request-ID", requestID)
		c.Locals("requestID", requestID)

		return c.Next()
	}
}
