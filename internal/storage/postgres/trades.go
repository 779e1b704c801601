package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// TradeStore is the pgx implementation of domain.TradeStore.
type TradeStore struct {
	pool *pgxpool.Pool
}

func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

func (s *TradeStore) ExistingKeys(ctx context.Context) (map[domain.TradeKey]struct{}, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("existing_keys"))

	rows, err := s.pool.Query(ctx,
		`SELECT purchase_date, stock_symbol, buyer_name FROM stock_purchases`)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("existing_keys", "error").Inc()
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[domain.TradeKey]struct{})
	for rows.Next() {
		var date *time.Time
		var symbol, buyer string
		if err := rows.Scan(&date, &symbol, &buyer); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		if date == nil {
			continue // cannot form a composite key without a date
		}
		keys[domain.TradeKey{
			Date:   date.Format("2006-01-02"),
			Symbol: symbol,
			Buyer:  buyer,
		}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key rows: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("existing_keys", "success").Inc()
	return keys, nil
}

// InsertBatch writes all records in one transaction via COPY so a failed
// load never leaves a partially applied batch behind.
func (s *TradeStore) InsertBatch(ctx context.Context, records []domain.TradeRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	count, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"stock_purchases"},
		[]string{"purchase_date", "purchase_price", "stock_symbol", "buyer_name"},
		&tradeSource{records: records},
	)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("insert_trades", "error").Inc()
		return 0, fmt.Errorf("copy trades: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("insert_trades", "success").Inc()
	return count, nil
}

type tradeSource struct {
	records []domain.TradeRecord
	index   int
}

func (ts *tradeSource) Next() bool {
	ts.index++
	return ts.index <= len(ts.records)
}

func (ts *tradeSource) Values() ([]interface{}, error) {
	rec := ts.records[ts.index-1]
	return []interface{}{
		rec.PurchaseDate,
		rec.Price,
		rec.Symbol,
		rec.BuyerName,
	}, nil
}

func (ts *tradeSource) Err() error {
	return nil
}

func (s *TradeStore) DeleteUnresolved(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM stock_purchases
		 WHERE stock_symbol = $1 OR buyer_name = $1 OR purchase_price IS NULL`,
		domain.Unknown)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("cleanup_trades", "error").Inc()
		return 0, fmt.Errorf("delete unresolved rows: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("cleanup_trades", "success").Inc()
	return tag.RowsAffected(), nil
}

func (s *TradeStore) ListSince(ctx context.Context, since time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, purchase_date, purchase_price, stock_symbol, buyer_name,
		        price_before, price_after
		 FROM stock_purchases
		 WHERE purchase_date > $1
		 ORDER BY purchase_date DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.ID, &t.PurchaseDate, &t.Price, &t.Symbol,
			&t.BuyerName, &t.PriceBefore, &t.PriceAfter); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

func (s *TradeStore) CountDistinctBuyers(ctx context.Context, symbol string, after time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT buyer_name) FROM stock_purchases
		 WHERE stock_symbol = $1 AND purchase_date > $2`,
		symbol, after).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distinct buyers: %w", err)
	}
	return count, nil
}
