package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmelo/capitol-tracker/internal/backfill"
	"github.com/dmelo/capitol-tracker/internal/config"
	"github.com/dmelo/capitol-tracker/internal/httputil"
	"github.com/dmelo/capitol-tracker/internal/ingestion"
	"github.com/dmelo/capitol-tracker/internal/marketdata"
	"github.com/dmelo/capitol-tracker/internal/service"
	"github.com/dmelo/capitol-tracker/internal/storage/cache"
	"github.com/dmelo/capitol-tracker/internal/storage/postgres"
	pkglogger "github.com/dmelo/capitol-tracker/pkg/logger"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "capitol-tracker",
		Short: "Congressional stock purchase tracker CLI",
		Long: `CLI for the congressional stock purchase pipeline.
Scrapes the trade listing, loads new purchases and backfills price history.`,
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Creates database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}

	var scrapeCmd = &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes the trade listing and loads new purchases",
		Long: `Fetches the paginated purchase listing, normalizes each row and
inserts records not already present. Rows that stay unresolved after
normalization are cleaned up at the end of the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, _ := cmd.Flags().GetInt("pages")
			return runScrape(pages)
		},
	}

	scrapeCmd.Flags().IntP("pages", "p", 0, "Number of listing pages to scrape (default: from config)")

	var backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Backfills price history for multi-buyer symbols",
		Long: `Scans purchases from the configured window and fetches daily close
prices for every symbol bought by more than one distinct buyer.
Already stored (symbol, date) points are never written again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill()
		},
	}

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Checks system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(migrateCmd, scrapeCmd, backfillCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) error {
	return pkglogger.Init(cfg.LogLevel, cfg.Environment == "development")
}

func connectDB(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runMigrate() error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("🔄 Creating tables...")
	if err := postgres.Migrate(ctx, db.Pool()); err != nil {
		return err
	}

	fmt.Println("✅ Migration complete")
	return nil
}

func runScrape(pages int) error {
	ctx := context.Background()
	cfg := config.Load()

	if err := initLogger(cfg); err != nil {
		return err
	}
	defer pkglogger.Close()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if pages <= 0 {
		pages = cfg.MaxPages
	}

	retry := httputil.RetryConfig{
		MaxAttempts: cfg.FetchMaxAttempts,
		BaseDelay:   cfg.FetchBaseDelay,
		MaxDelay:    16 * time.Second,
	}
	fetcher := ingestion.NewPageFetcher(cfg.ListingBaseURL, cfg.FetchTimeout, retry)
	coordinator := ingestion.NewCoordinator(fetcher, cfg.ScrapeWorkers)
	loader := ingestion.NewDedupLoader(postgres.NewTradeStore(db.Pool()))
	scraper := service.NewScrapeService(coordinator, loader, pages)

	fmt.Printf("📥 Scraping %d listing pages...\n", pages)

	summary, err := scraper.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Scrape summary:\n")
	fmt.Printf("├─ Records scraped: %d\n", summary.Scraped)
	fmt.Printf("├─ Inserted:        %d\n", summary.Inserted)
	fmt.Printf("├─ Duplicates:      %d\n", summary.Duplicates)
	fmt.Printf("├─ Invalid dates:   %d\n", summary.InvalidDate)
	fmt.Printf("├─ Cleaned up:      %d\n", summary.Cleaned)
	fmt.Printf("└─ Elapsed:         %s\n", summary.Elapsed.Round(time.Millisecond))

	if len(summary.FailedPages) > 0 {
		fmt.Printf("\n⚠️  %d pages failed: %v\n", len(summary.FailedPages), summary.FailedPages)
	}

	return nil
}

func runBackfill() error {
	ctx := context.Background()
	cfg := config.Load()

	if err := initLogger(cfg); err != nil {
		return err
	}
	defer pkglogger.Close()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	provider := marketdata.NewClient(cfg.MarketDataBaseURL, cfg.FetchTimeout)
	scheduler := backfill.NewScheduler(
		postgres.NewTradeStore(db.Pool()),
		postgres.NewPriceStore(db.Pool()),
		provider,
		cfg.BackfillWindowDays,
		cfg.ProviderDelay,
	)

	fmt.Printf("📥 Backfilling prices for the last %d days...\n", cfg.BackfillWindowDays)

	res, err := scheduler.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Backfill summary:\n")
	fmt.Printf("├─ Trades scanned:  %d\n", res.TradesScanned)
	fmt.Printf("├─ Symbols fetched: %d\n", res.SymbolsFetched)
	fmt.Printf("├─ Points inserted: %d\n", res.PointsInserted)
	fmt.Printf("└─ Provider errors: %d\n", res.ProviderErrors)

	return nil
}

func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("🏥 Checking system health...")
	fmt.Println()

	fmt.Print("PostgreSQL: ")
	db, err := connectDB(cfg)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
	} else {
		defer db.Close()

		var result int
		err = db.Pool().QueryRow(ctx, "SELECT 1").Scan(&result)
		if err != nil {
			fmt.Printf("❌ Query error: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}
	}

	fmt.Print("Redis: ")
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		fmt.Println("❌ Not available")
	} else {
		defer redisCache.Close()

		if err := redisCache.HealthCheck(ctx); err != nil {
			fmt.Printf("❌ Error: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}
	}

	fmt.Println("\n✅ Health check complete")
	return nil
}
