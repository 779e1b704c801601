package ingestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

var (
	symbolRe = regexp.MustCompile(`[A-Z]{1,4}:[A-Z]{2}`)
	buyerRe  = regexp.MustCompile(`[A-Z][^A-Z]*\s[A-Z][^A-Z]*`)
	digitsRe = regexp.MustCompile(`\d+`)
)

// symbolAliases rewrites known mis-tokenized tickers from the listing.
var symbolAliases = map[string]string{
	"OOGL:US": "GOOGL:US",
}

// The listing renders textual dates inconsistently, sometimes gluing the
// year onto the month token.
var textualDateLayouts = []string{
	"2 Jan 2006",
	"2,Jan,2006",
	"2 Jan2006",
	"2Jan2006",
}

// ParseListingDate converts a raw listing date cell into a calendar date.
// It accepts a numeric year/month/day triple in any separator style, or a
// day/abbreviated-month/year textual form. This is the single canonical date
// parser: the loader computes dedup keys from the same result, never from a
// second parse of the raw text.
func ParseListingDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if nums := digitsRe.FindAllString(s, -1); len(nums) >= 3 {
		year, _ := strconv.Atoi(nums[0])
		month, _ := strconv.Atoi(nums[1])
		day, _ := strconv.Atoi(nums[2])
		if year >= 1000 && month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if d.Day() == day && int(d.Month()) == month {
				return d, nil
			}
		}
	}

	for _, layout := range textualDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// NormalizePrice strips currency and thousands separators. Empty or "N/A"
// input yields nil, never zero.
func NormalizePrice(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == domain.Unknown {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// NormalizeSymbol extracts a TICKER:CC code from the raw cell, applying the
// known alias fixes. Unmatched input yields the Unknown sentinel.
func NormalizeSymbol(raw string) string {
	m := symbolRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return domain.Unknown
	}
	if fixed, ok := symbolAliases[m]; ok {
		return fixed
	}
	return m
}

// NormalizeBuyer extracts a two-capitalized-word name from the raw cell.
// Unmatched input yields the Unknown sentinel.
func NormalizeBuyer(raw string) string {
	m := buyerRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return domain.Unknown
	}
	return strings.TrimSpace(m)
}

// NormalizeRow builds a TradeRecord from the raw cells of one listing row.
// Malformed input degrades individual fields to nil or the sentinel; it
// never fails the row outright.
func NormalizeRow(buyerCell, symbolCell, dateCell, priceCell string) domain.TradeRecord {
	rec := domain.TradeRecord{
		Symbol:    NormalizeSymbol(symbolCell),
		BuyerName: NormalizeBuyer(buyerCell),
		Price:     NormalizePrice(priceCell),
	}
	if d, err := ParseListingDate(dateCell); err == nil {
		rec.PurchaseDate = &d
	}
	return rec
}
