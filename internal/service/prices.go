package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/internal/storage/cache"
	"github.com/dmelo/capitol-tracker/pkg/logger"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

type PriceService struct {
	pool     *pgxpool.Pool
	cache    *cache.RedisCache
	cacheTTL time.Duration
}

func NewPriceService(pool *pgxpool.Pool, c *cache.RedisCache, cacheTTL time.Duration) *PriceService {
	return &PriceService{pool: pool, cache: c, cacheTTL: cacheTTL}
}

// SymbolPrices returns the stored daily close series for one symbol,
// oldest first. Predicted rows are excluded unless asked for.
func (s *PriceService) SymbolPrices(ctx context.Context, symbol string, includePredictions bool) ([]domain.PricePoint, error) {
	cacheKey := fmt.Sprintf("prices:%s:%t", symbol, includePredictions)
	var cached []domain.PricePoint
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("symbol_prices"))

	query := `
        SELECT id, stock_symbol, price_date, close_price, is_prediction
        FROM stock_prices
        WHERE stock_symbol = $1`
	if !includePredictions {
		query += ` AND is_prediction = FALSE`
	}
	query += ` ORDER BY price_date ASC`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("symbol_prices", "error").Inc()
		return nil, fmt.Errorf("query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Date, &p.Price, &p.IsPrediction); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("symbol_prices", "success").Inc()

	logger.Debug("price series retrieved",
		zap.String("symbol", symbol),
		zap.Int("points", len(points)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, points, s.cacheTTL); err != nil {
			logger.Warn("failed to cache price series", zap.Error(err))
		}
	}

	return points, nil
}
