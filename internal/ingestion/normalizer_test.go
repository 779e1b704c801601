package ingestion

import (
	"testing"
	"time"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

func TestParseListingDateNumericTriple(t *testing.T) {
	d, err := ParseListingDate("2024,03,15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Fatalf("expected %s, got %s", want, d)
	}
}

func TestParseListingDateTextual(t *testing.T) {
	cases := []string{"15 Mar 2024", "15,Mar,2024", "15 Mar2024"}
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range cases {
		d, err := ParseListingDate(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if !d.Equal(want) {
			t.Fatalf("%q: expected %s, got %s", raw, want, d)
		}
	}
}

func TestParseListingDateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "soon", "2024,13,40", "Mar"} {
		if _, err := ParseListingDate(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	p := NormalizePrice("$1,234.56")
	if p == nil {
		t.Fatal("expected parsed price")
	}
	if p.String() != "1234.56" {
		t.Fatalf("expected 1234.56, got %s", p)
	}

	if NormalizePrice("N/A") != nil {
		t.Fatal("N/A must yield nil, not zero")
	}
	if NormalizePrice("") != nil {
		t.Fatal("empty price must yield nil")
	}
	if NormalizePrice("$--") != nil {
		t.Fatal("garbage price must yield nil")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("Alphabet Inc GOOGL:US"); got != "GOOGL:US" {
		t.Fatalf("expected GOOGL:US, got %s", got)
	}
	if got := NormalizeSymbol("Alphabet Inc OOGL:US"); got != "GOOGL:US" {
		t.Fatalf("alias fix: expected GOOGL:US, got %s", got)
	}
	if got := NormalizeSymbol("no ticker here"); got != domain.Unknown {
		t.Fatalf("expected sentinel, got %s", got)
	}
}

func TestNormalizeBuyer(t *testing.T) {
	if got := NormalizeBuyer("Jane DoeDemocrat Senate"); got != "Jane Doe" {
		t.Fatalf("expected Jane Doe, got %q", got)
	}
	if got := NormalizeBuyer("???"); got != domain.Unknown {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestNormalizeRowDegradesFieldsIndependently(t *testing.T) {
	rec := NormalizeRow("Jane DoeDemocrat", "garbage", "not a date", "N/A")

	if rec.BuyerName != "Jane Doe" {
		t.Fatalf("expected buyer resolved, got %q", rec.BuyerName)
	}
	if rec.Symbol != domain.Unknown {
		t.Fatalf("expected sentinel symbol, got %q", rec.Symbol)
	}
	if rec.PurchaseDate != nil {
		t.Fatal("expected nil date")
	}
	if rec.Price != nil {
		t.Fatal("expected nil price")
	}
	if rec.Resolved() {
		t.Fatal("record must not be considered resolved")
	}
	if _, ok := rec.Key(); ok {
		t.Fatal("record without a date must not produce a key")
	}
}
