package api

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/service"
	"github.com/dmelo/capitol-tracker/internal/storage/cache"
	"github.com/dmelo/capitol-tracker/internal/storage/postgres"
	"github.com/dmelo/capitol-tracker/pkg/logger"
)

type Handler struct {
	db              *postgres.DB
	cacheService    *cache.RedisCache
	purchaseService *service.PurchaseService
	priceService    *service.PriceService
	scrapeService   *service.ScrapeService
}

func NewHandler(
	db *postgres.DB,
	cacheService *cache.RedisCache,
	purchaseService *service.PurchaseService,
	priceService *service.PriceService,
	scrapeService *service.ScrapeService,
) *Handler {
	return &Handler{
		db:              db,
		cacheService:    cacheService,
		purchaseService: purchaseService,
		priceService:    priceService,
		scrapeService:   scrapeService,
	}
}

func (h *Handler) GetRecentPurchases(c *fiber.Ctx) error {
	days := c.QueryInt("days", 45)
	limit := c.QueryInt("limit", 100)

	purchases, err := h.purchaseService.RecentPurchases(c.Context(), days, limit)
	if err != nil {
		logger.Error("failed to list recent purchases", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to list recent purchases",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(PurchasesResponse{
		Purchases: purchases,
		Count:     len(purchases),
	})
}

func (h *Handler) GetSymbolPurchases(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     "symbol is required",
			Code:      fiber.StatusBadRequest,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	purchases, err := h.purchaseService.SymbolPurchases(c.Context(), symbol)
	if err != nil {
		logger.Error("failed to list symbol purchases",
			zap.String("symbol", symbol),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to list symbol purchases",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(SymbolPurchasesResponse{
		Symbol:    symbol,
		Purchases: purchases,
		Count:     len(purchases),
	})
}

func (h *Handler) GetSymbolPrices(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     "symbol is required",
			Code:      fiber.StatusBadRequest,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	includePredictions := c.QueryBool("include_predictions", false)

	prices, err := h.priceService.SymbolPrices(c.Context(), symbol, includePredictions)
	if err != nil {
		logger.Error("failed to list symbol prices",
			zap.String("symbol", symbol),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to list symbol prices",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(SymbolPricesResponse{
		Symbol: symbol,
		Prices: prices,
		Count:  len(prices),
	})
}

func (h *Handler) GetMultiBuyerActivity(c *fiber.Ctx) error {
	days := c.QueryInt("days", 45)

	activity, err := h.purchaseService.MultiBuyerActivity(c.Context(), days)
	if err != nil {
		logger.Error("failed to list multi-buyer activity", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to list multi-buyer activity",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(ActivityResponse{
		WindowDays: days,
		Activity:   activity,
		Count:      len(activity),
	})
}

// TriggerScrape kicks off a full scrape-and-load run in the background.
// The run outlives the request, so it gets its own context.
func (h *Handler) TriggerScrape(c *fiber.Ctx) error {
	jobID := generateJobID()

	go func() {
		ctx := context.Background()
		summary, err := h.scrapeService.Run(ctx)
		if err != nil {
			logger.Error("scrape job failed",
				zap.String("job_id", jobID),
				zap.Error(err))
			return
		}
		logger.Info("scrape job finished",
			zap.String("job_id", jobID),
			zap.Int("scraped", summary.Scraped),
			zap.Int64("inserted", summary.Inserted))
	}()

	return c.JSON(ScrapeResponse{
		JobID:   jobID,
		Status:  "processing",
		Message: "scrape started",
	})
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	pattern := c.Params("pattern", "*")

	if h.cacheService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:     "cache not available",
			Code:      fiber.StatusServiceUnavailable,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	if err := h.cacheService.DeletePattern(c.Context(), pattern); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to invalidate cache",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("cache invalidated for pattern: %s", pattern),
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	dbStats := h.db.Stats()

	response := SystemStatsResponse{
		Database: DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		},
		API: APIStats{
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	}

	return c.JSON(response)
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	dbStart := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["database"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	if h.cacheService != nil {
		redisStart := time.Now()
		if err := h.cacheService.HealthCheck(ctx); err != nil {
			services["redis"] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
		} else {
			services["redis"] = ServiceHealth{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	}

	status := "ready"
	for _, svc := range services {
		if svc.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func generateJobID() string {
	return fmt.Sprintf("job_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

func getRequestID(c *fiber.Ctx) string {
	if id := c.Locals("requestID"); id != nil {
		return id.(string)
	}
	return ""
}
