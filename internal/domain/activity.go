package domain

import "time"

// SymbolActivity summarizes buying interest in one symbol over a window.
type SymbolActivity struct {
	Symbol       string    `json:"symbol"`
	BuyerCount   int       `json:"buyer_count"`
	TradeCount   int       `json:"trade_count"`
	LastPurchase time.Time `json:"last_purchase"`
}
