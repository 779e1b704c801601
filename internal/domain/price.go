package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily closing price for a symbol. Points written by the
// backfill carry IsPrediction=false; forecast rows are produced by the
// external prediction step and are only ever read here.
type PricePoint struct {
	ID           int64           `db:"id"`
	Symbol       string          `db:"stock_symbol"`
	Date         time.Time       `db:"price_date"`
	Price        decimal.Decimal `db:"close_price"`
	IsPrediction bool            `db:"is_prediction"`
}
