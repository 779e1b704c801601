package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/internal/storage/cache"
	"github.com/dmelo/capitol-tracker/pkg/logger"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// PurchaseService answers read queries over the scraped purchase rows.
// The cache may be nil, in which case every call hits the database.
type PurchaseService struct {
	pool     *pgxpool.Pool
	cache    *cache.RedisCache
	cacheTTL time.Duration
}

func NewPurchaseService(pool *pgxpool.Pool, c *cache.RedisCache, cacheTTL time.Duration) *PurchaseService {
	return &PurchaseService{pool: pool, cache: c, cacheTTL: cacheTTL}
}

func (s *PurchaseService) RecentPurchases(ctx context.Context, days, limit int) ([]domain.TradeRecord, error) {
	if days <= 0 || days > 365 {
		days = 45
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("purchases:recent:%d:%d", days, limit)
	var cached []domain.TradeRecord
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("recent_purchases"))

	rows, err := s.pool.Query(ctx, `
        SELECT id, purchase_date, purchase_price, stock_symbol, buyer_name,
               price_before, price_after
        FROM stock_purchases
        WHERE purchase_date > CURRENT_DATE - $1::int
        ORDER BY purchase_date DESC, id DESC
        LIMIT $2
    `, days, limit)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("recent_purchases", "error").Inc()
		return nil, fmt.Errorf("query recent purchases: %w", err)
	}
	defer rows.Close()

	purchases, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	metrics.DatabaseQueries.WithLabelValues("recent_purchases", "success").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, purchases, s.cacheTTL); err != nil {
			logger.Warn("failed to cache recent purchases", zap.Error(err))
		}
	}

	return purchases, nil
}

func (s *PurchaseService) SymbolPurchases(ctx context.Context, symbol string) ([]domain.TradeRecord, error) {
	cacheKey := "purchases:symbol:" + symbol
	var cached []domain.TradeRecord
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("symbol_purchases"))

	rows, err := s.pool.Query(ctx, `
        SELECT id, purchase_date, purchase_price, stock_symbol, buyer_name,
               price_before, price_after
        FROM stock_purchases
        WHERE stock_symbol = $1
        ORDER BY purchase_date DESC, id DESC
    `, symbol)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("symbol_purchases", "error").Inc()
		return nil, fmt.Errorf("query purchases for %s: %w", symbol, err)
	}
	defer rows.Close()

	purchases, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	metrics.DatabaseQueries.WithLabelValues("symbol_purchases", "success").Inc()

	logger.Debug("symbol purchases retrieved",
		zap.String("symbol", symbol),
		zap.Int("records", len(purchases)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, purchases, s.cacheTTL); err != nil {
			logger.Warn("failed to cache symbol purchases", zap.Error(err))
		}
	}

	return purchases, nil
}

// MultiBuyerActivity lists symbols bought by more than one distinct buyer
// within the window. These are the symbols the backfill step fetches prices for.
func (s *PurchaseService) MultiBuyerActivity(ctx context.Context, days int) ([]domain.SymbolActivity, error) {
	if days <= 0 || days > 365 {
		days = 45
	}

	cacheKey := fmt.Sprintf("activity:multi-buyer:%d", days)
	var cached []domain.SymbolActivity
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("multi_buyer_activity"))

	rows, err := s.pool.Query(ctx, `
        SELECT stock_symbol,
               COUNT(DISTINCT buyer_name) AS buyer_count,
               COUNT(*) AS trade_count,
               MAX(purchase_date) AS last_purchase
        FROM stock_purchases
        WHERE purchase_date > CURRENT_DATE - $1::int
          AND stock_symbol <> $2
        GROUP BY stock_symbol
        HAVING COUNT(DISTINCT buyer_name) > 1
        ORDER BY buyer_count DESC, trade_count DESC
    `, days, domain.Unknown)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("multi_buyer_activity", "error").Inc()
		return nil, fmt.Errorf("query multi-buyer activity: %w", err)
	}
	defer rows.Close()

	var activity []domain.SymbolActivity
	for rows.Next() {
		var a domain.SymbolActivity
		if err := rows.Scan(&a.Symbol, &a.BuyerCount, &a.TradeCount, &a.LastPurchase); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("multi_buyer_activity", "success").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, activity, s.cacheTTL); err != nil {
			logger.Warn("failed to cache activity", zap.Error(err))
		}
	}

	return activity, nil
}

func scanTrades(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.ID, &t.PurchaseDate, &t.Price, &t.Symbol,
			&t.BuyerName, &t.PriceBefore, &t.PriceAfter); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}
	return trades, nil
}
