package api

import (
	"crypto/subtle"
	"encoding/base64"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmelo/capitol-tracker/internal/config"
)

func SetupRoutes(app *fiber.App, handler *Handler, cfg *config.Config) {
	// Global middlewares
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks (no rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	// Prometheus metrics endpoint (no rate limiting)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation (no rate limiting)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 with rate limiting and request metrics
	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(RequestMetrics())

	purchases := v1.Group("/purchases")
	purchases.Get("/recent", handler.GetRecentPurchases)

	symbol := v1.Group("/symbol")
	symbol.Get("/:symbol/purchases", handler.GetSymbolPurchases)
	symbol.Get("/:symbol/prices", handler.GetSymbolPrices)

	activity := v1.Group("/activity")
	activity.Get("/multi-buyer", handler.GetMultiBuyerActivity)

	admin := v1.Group("/admin")
	admin.Use(AdminRateLimiter())
	admin.Use(BasicAuth(cfg.AdminUser, cfg.AdminPassword))
	admin.Post("/scrape", handler.TriggerScrape)
	admin.Delete("/cache/:pattern", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
}

// BasicAuth guards the admin surface with the configured credentials.
func BasicAuth(user, password string) fiber.Handler {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))

	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
