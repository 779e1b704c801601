package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

// PriceStore is the pgx implementation of domain.PriceStore.
type PriceStore struct {
	pool *pgxpool.Pool
}

func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

func (s *PriceStore) Exists(ctx context.Context, symbol string, date time.Time) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM stock_prices WHERE stock_symbol = $1 AND price_date = $2`,
		symbol, date).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check price point: %w", err)
	}
	return true, nil
}

func (s *PriceStore) Insert(ctx context.Context, point domain.PricePoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stock_prices (stock_symbol, price_date, close_price, is_prediction)
		 VALUES ($1, $2, $3, $4)`,
		point.Symbol, point.Date, point.Price, point.IsPrediction)
	if err != nil {
		return fmt.Errorf("insert price point: %w", err)
	}
	return nil
}

func (s *PriceStore) ListBySymbol(ctx context.Context, symbol string, includePredictions bool) ([]domain.PricePoint, error) {
	query := `SELECT id, stock_symbol, price_date, close_price, is_prediction
	          FROM stock_prices
	          WHERE stock_symbol = $1`
	if !includePredictions {
		query += ` AND is_prediction = FALSE`
	}
	query += ` ORDER BY price_date ASC`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query price series: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Date, &p.Price, &p.IsPrediction); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return points, nil
}
