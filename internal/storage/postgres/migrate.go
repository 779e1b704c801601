package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the two tables the pipeline needs. price_before and
// price_after belong to the downstream prediction step and stay empty here.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stock_purchases (
			id SERIAL PRIMARY KEY,
			purchase_date DATE,
			purchase_price NUMERIC(10,2),
			stock_symbol VARCHAR(15),
			buyer_name VARCHAR(100),
			price_before NUMERIC(10,2),
			price_after NUMERIC(10,2)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_prices (
			id SERIAL PRIMARY KEY,
			stock_symbol VARCHAR(15),
			price_date DATE,
			close_price NUMERIC(10,2),
			is_prediction BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_purchases_symbol_date
			ON stock_purchases (stock_symbol, purchase_date)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol_date
			ON stock_prices (stock_symbol, price_date)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
