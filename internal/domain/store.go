package domain

import (
	"context"
	"time"
)

// TradeStore persists disclosed purchases.
type TradeStore interface {
	// ExistingKeys loads every persisted composite key in a single query so
	// dedup membership checks are in-memory.
	ExistingKeys(ctx context.Context) (map[TradeKey]struct{}, error)
	// InsertBatch inserts records as one batch inside a transaction.
	InsertBatch(ctx context.Context, records []TradeRecord) (int64, error)
	// DeleteUnresolved removes rows with a sentinel symbol or buyer name, or
	// a null price.
	DeleteUnresolved(ctx context.Context) (int64, error)
	ListSince(ctx context.Context, since time.Time) ([]TradeRecord, error)
	CountDistinctBuyers(ctx context.Context, symbol string, after time.Time) (int, error)
}

// PriceStore persists daily price points.
type PriceStore interface {
	Exists(ctx context.Context, symbol string, date time.Time) (bool, error)
	Insert(ctx context.Context, point PricePoint) error
	ListBySymbol(ctx context.Context, symbol string, includePredictions bool) ([]PricePoint, error)
}
