package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dmelo/capitol-tracker/internal/api"
	"github.com/dmelo/capitol-tracker/internal/config"
	"github.com/dmelo/capitol-tracker/internal/httputil"
	"github.com/dmelo/capitol-tracker/internal/ingestion"
	"github.com/dmelo/capitol-tracker/internal/service"
	"github.com/dmelo/capitol-tracker/internal/storage/cache"
	"github.com/dmelo/capitol-tracker/internal/storage/postgres"
	pkglogger "github.com/dmelo/capitol-tracker/pkg/logger"
)

// @title Capitol Tracker API
// @version 1.0
// @description API for congressional stock purchase data

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer pkglogger.Close()

	db, err := connectPostgres(cfg)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	cacheService := connectRedis(cfg)
	if cacheService != nil {
		defer cacheService.Close()
	}

	// Services
	purchaseService := service.NewPurchaseService(db.Pool(), cacheService, cfg.CacheTTL)
	priceService := service.NewPriceService(db.Pool(), cacheService, cfg.CacheTTL)

	// Scrape pipeline
	retry := httputil.RetryConfig{
		MaxAttempts: cfg.FetchMaxAttempts,
		BaseDelay:   cfg.FetchBaseDelay,
		MaxDelay:    16 * time.Second,
	}
	fetcher := ingestion.NewPageFetcher(cfg.ListingBaseURL, cfg.FetchTimeout, retry)
	coordinator := ingestion.NewCoordinator(fetcher, cfg.ScrapeWorkers)
	loader := ingestion.NewDedupLoader(postgres.NewTradeStore(db.Pool()))
	scrapeService := service.NewScrapeService(coordinator, loader, cfg.MaxPages)

	// Handler
	handler := api.NewHandler(
		db,
		cacheService,
		purchaseService,
		priceService,
		scrapeService,
	)

	// Fiber app
	app := fiber.New(fiber.Config{
		Prefork:               false,
		ServerHeader:          "Capitol-Tracker",
		DisableStartupMessage: false,
		AppName:               "Capitol Tracker v1.0.0",
		ReadTimeout:           cfg.APIReadTimeout,
		WriteTimeout:          cfg.APIWriteTimeout,
		IdleTimeout:           120 * time.Second,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
		ProxyHeader:           "X-Forwarded-For",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Setup routes
	api.SetupRoutes(app, handler, cfg)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("Starting server on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal("Server error:", err)
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("test connection: %w", err)
	}

	log.Println("Connected to PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Printf("Redis not available: %v (continuing without cache)", err)
		return nil
	}

	log.Println("Connected to Redis")
	return redisCache
}
