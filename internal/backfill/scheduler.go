package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/pkg/logger"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// PriceProvider returns a daily close-price series for a symbol. An empty
// series means no data exists for the range.
type PriceProvider interface {
	DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error)
}

// Scheduler backfills historical prices for symbols that attracted more
// than one distinct buyer inside a rolling window. Inserts are idempotent:
// a (symbol, date) already present is never written again. Provider calls
// are throttled with a fixed delay; the provider enforces quotas by
// blocking clients that ignore them.
type Scheduler struct {
	trades     domain.TradeStore
	prices     domain.PriceStore
	provider   PriceProvider
	windowDays int
	delay      time.Duration

	// Swappable for tests.
	sleep func(d time.Duration)
	now   func() time.Time
}

func NewScheduler(trades domain.TradeStore, prices domain.PriceStore, provider PriceProvider, windowDays int, delay time.Duration) *Scheduler {
	if windowDays <= 0 {
		windowDays = 45
	}
	return &Scheduler{
		trades:     trades,
		prices:     prices,
		provider:   provider,
		windowDays: windowDays,
		delay:      delay,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

type Result struct {
	TradesScanned  int
	SymbolsFetched int
	PointsInserted int
	ProviderErrors int
}

// Run scans trades from the last window and backfills price history for
// every multi-buyer symbol, once per symbol per run. Provider failures
// degrade to "no data" for that symbol; store failures abort the run.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	now := s.now()
	since := now.AddDate(0, 0, -s.windowDays)

	trades, err := s.trades.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}

	res := &Result{TradesScanned: len(trades)}
	fetched := make(map[string]bool)

	for _, trade := range trades {
		if trade.PurchaseDate == nil || trade.Symbol == domain.Unknown {
			continue
		}
		if fetched[trade.Symbol] {
			continue
		}

		windowStart := trade.PurchaseDate.AddDate(0, 0, -s.windowDays)
		buyers, err := s.trades.CountDistinctBuyers(ctx, trade.Symbol, windowStart)
		if err != nil {
			return nil, fmt.Errorf("count buyers for %s: %w", trade.Symbol, err)
		}
		if buyers <= 1 {
			continue
		}
		fetched[trade.Symbol] = true

		s.sleep(s.delay)
		points, err := s.provider.DailyHistory(ctx, trade.Symbol, windowStart, now)
		if err != nil {
			res.ProviderErrors++
			metrics.BackfillProviderCalls.WithLabelValues("error").Inc()
			logger.Warn("price history unavailable",
				zap.String("symbol", trade.Symbol),
				zap.Error(err))
			continue
		}
		metrics.BackfillProviderCalls.WithLabelValues("ok").Inc()
		res.SymbolsFetched++

		inserted := 0
		for _, point := range points {
			exists, err := s.prices.Exists(ctx, point.Symbol, point.Date)
			if err != nil {
				return nil, fmt.Errorf("check price point %s %s: %w",
					point.Symbol, point.Date.Format("2006-01-02"), err)
			}
			if exists {
				continue
			}
			if err := s.prices.Insert(ctx, point); err != nil {
				return nil, fmt.Errorf("insert price point %s %s: %w",
					point.Symbol, point.Date.Format("2006-01-02"), err)
			}
			inserted++
		}
		res.PointsInserted += inserted
		metrics.BackfillPointsInserted.Add(float64(inserted))

		logger.Info("symbol backfilled",
			zap.String("symbol", trade.Symbol),
			zap.Int("buyers", buyers),
			zap.Int("points_inserted", inserted),
			zap.Time("window_start", windowStart))
	}

	logger.Info("backfill finished",
		zap.Int("trades_scanned", res.TradesScanned),
		zap.Int("symbols_fetched", res.SymbolsFetched),
		zap.Int("points_inserted", res.PointsInserted),
		zap.Int("provider_errors", res.ProviderErrors))

	return res, nil
}
