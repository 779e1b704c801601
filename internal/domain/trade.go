package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unknown is the sentinel stored for a symbol or buyer name that could not
// be extracted from the listing row. Rows carrying it are removed by the
// loader's cleanup pass.
const Unknown = "N/A"

// TradeRecord is one disclosed securities purchase scraped from the listing.
// PurchaseDate and Price stay nil when the source cell could not be parsed;
// such records are never treated as valid for persistence.
type TradeRecord struct {
	ID           int64            `db:"id"`
	PurchaseDate *time.Time       `db:"purchase_date"`
	Price        *decimal.Decimal `db:"purchase_price"`
	Symbol       string           `db:"stock_symbol"`
	BuyerName    string           `db:"buyer_name"`

	// Reserved for the downstream prediction step; never written by the
	// ingestion pipeline.
	PriceBefore *decimal.Decimal `db:"price_before"`
	PriceAfter  *decimal.Decimal `db:"price_after"`
}

// TradeKey is the composite identity of a persisted purchase. Date is the
// canonical ISO form so keys compare equal regardless of the raw source text.
type TradeKey struct {
	Date   string
	Symbol string
	Buyer  string
}

// Key returns the dedup key for the record. ok is false when the purchase
// date never resolved, in which case the record must not be inserted.
func (t TradeRecord) Key() (TradeKey, bool) {
	if t.PurchaseDate == nil {
		return TradeKey{}, false
	}
	return TradeKey{
		Date:   t.PurchaseDate.Format("2006-01-02"),
		Symbol: t.Symbol,
		Buyer:  t.BuyerName,
	}, true
}

// Resolved reports whether every field parsed successfully. Unresolved
// records may still be inserted (the cleanup pass removes them) but are
// never counted as valid data.
func (t TradeRecord) Resolved() bool {
	return t.PurchaseDate != nil &&
		t.Price != nil &&
		t.Symbol != Unknown &&
		t.BuyerName != Unknown
}
