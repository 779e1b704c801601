package backfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var testNow = time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

type memTradeStore struct {
	rows []domain.TradeRecord
}

func (s *memTradeStore) ExistingKeys(ctx context.Context) (map[domain.TradeKey]struct{}, error) {
	return nil, nil
}

func (s *memTradeStore) InsertBatch(ctx context.Context, records []domain.TradeRecord) (int64, error) {
	s.rows = append(s.rows, records...)
	return int64(len(records)), nil
}

func (s *memTradeStore) DeleteUnresolved(ctx context.Context) (int64, error) { return 0, nil }

func (s *memTradeStore) ListSince(ctx context.Context, since time.Time) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, r := range s.rows {
		if r.PurchaseDate != nil && r.PurchaseDate.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memTradeStore) CountDistinctBuyers(ctx context.Context, symbol string, after time.Time) (int, error) {
	buyers := map[string]struct{}{}
	for _, r := range s.rows {
		if r.Symbol == symbol && r.PurchaseDate != nil && r.PurchaseDate.After(after) {
			buyers[r.BuyerName] = struct{}{}
		}
	}
	return len(buyers), nil
}

type memPriceStore struct {
	points     map[string]domain.PricePoint
	failInsert bool
}

func newMemPriceStore() *memPriceStore {
	return &memPriceStore{points: make(map[string]domain.PricePoint)}
}

func priceKey(symbol string, date time.Time) string {
	return symbol + "|" + date.Format("2006-01-02")
}

func (s *memPriceStore) Exists(ctx context.Context, symbol string, date time.Time) (bool, error) {
	_, ok := s.points[priceKey(symbol, date)]
	return ok, nil
}

func (s *memPriceStore) Insert(ctx context.Context, point domain.PricePoint) error {
	if s.failInsert {
		return errors.New("constraint violation")
	}
	key := priceKey(point.Symbol, point.Date)
	if _, dup := s.points[key]; dup {
		return fmt.Errorf("duplicate point %s", key)
	}
	s.points[key] = point
	return nil
}

func (s *memPriceStore) ListBySymbol(ctx context.Context, symbol string, includePredictions bool) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range s.points {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubProvider struct {
	calls map[string]int
	fail  bool
	days  int
}

func (p *stubProvider) DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[symbol]++
	if p.fail {
		return nil, errors.New("provider unavailable")
	}
	days := p.days
	if days == 0 {
		days = 5
	}
	var points []domain.PricePoint
	for i := 0; i < days; i++ {
		points = append(points, domain.PricePoint{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Price:  decimal.NewFromInt(int64(100 + i)),
		})
	}
	return points, nil
}

func trade(daysAgo int, symbol, buyer string) domain.TradeRecord {
	d := testNow.AddDate(0, 0, -daysAgo)
	p := decimal.NewFromInt(100)
	return domain.TradeRecord{PurchaseDate: &d, Symbol: symbol, BuyerName: buyer, Price: &p}
}

func newTestScheduler(trades *memTradeStore, prices *memPriceStore, provider PriceProvider) *Scheduler {
	s := NewScheduler(trades, prices, provider, 45, 0)
	s.sleep = func(d time.Duration) {}
	s.now = func() time.Time { return testNow }
	return s
}

func TestMultiBuyerTriggersSingleFetch(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
		trade(14, "AAPL:US", "Alex Craft"),
		trade(8, "MSFT:US", "Jane Doe"),
	}}
	prices := newMemPriceStore()
	provider := &stubProvider{}

	res, err := newTestScheduler(trades, prices, provider).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.calls["AAPL:US"] != 1 {
		t.Fatalf("expected exactly 1 fetch for AAPL:US, got %d", provider.calls["AAPL:US"])
	}
	if provider.calls["MSFT:US"] != 0 {
		t.Fatalf("single-buyer symbol must not be fetched, got %d calls", provider.calls["MSFT:US"])
	}
	if res.SymbolsFetched != 1 {
		t.Fatalf("expected 1 symbol fetched, got %d", res.SymbolsFetched)
	}
	if res.PointsInserted != 5 {
		t.Fatalf("expected 5 points inserted, got %d", res.PointsInserted)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
	}}
	prices := newMemPriceStore()
	provider := &stubProvider{}
	s := newTestScheduler(trades, prices, provider)

	first, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PointsInserted != 5 {
		t.Fatalf("expected 5 points on first run, got %d", first.PointsInserted)
	}

	second, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.PointsInserted != 0 {
		t.Fatalf("second run must insert nothing, got %d", second.PointsInserted)
	}
	if len(prices.points) != 5 {
		t.Fatalf("expected 5 persisted points, got %d", len(prices.points))
	}
}

func TestBackfillFillsOnlyMissingDates(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
	}}
	prices := newMemPriceStore()
	provider := &stubProvider{}

	// Pre-seed two of the five days the provider will return.
	windowStart := testNow.AddDate(0, 0, -10).AddDate(0, 0, -45)
	for i := 0; i < 2; i++ {
		prices.points[priceKey("AAPL:US", windowStart.AddDate(0, 0, i))] = domain.PricePoint{
			Symbol: "AAPL:US",
			Date:   windowStart.AddDate(0, 0, i),
			Price:  decimal.NewFromInt(1),
		}
	}

	res, err := newTestScheduler(trades, prices, provider).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PointsInserted != 3 {
		t.Fatalf("expected 3 gap points inserted, got %d", res.PointsInserted)
	}
}

func TestProviderFailureDoesNotAbortRun(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
	}}
	prices := newMemPriceStore()
	provider := &stubProvider{fail: true}

	res, err := newTestScheduler(trades, prices, provider).Run(context.Background())
	if err != nil {
		t.Fatalf("provider failure must not abort the run: %v", err)
	}
	if res.ProviderErrors != 1 {
		t.Fatalf("expected 1 provider error, got %d", res.ProviderErrors)
	}
	if res.PointsInserted != 0 {
		t.Fatalf("expected no points inserted, got %d", res.PointsInserted)
	}
}

func TestStoreFailureAbortsRun(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
	}}
	prices := newMemPriceStore()
	prices.failInsert = true

	_, err := newTestScheduler(trades, prices, &stubProvider{}).Run(context.Background())
	if err == nil {
		t.Fatal("price store failure must abort the run")
	}
}

func TestThrottleAppliedPerProviderCall(t *testing.T) {
	trades := &memTradeStore{rows: []domain.TradeRecord{
		trade(10, "AAPL:US", "Jane Doe"),
		trade(12, "AAPL:US", "John Smith"),
		trade(9, "MSFT:US", "Jane Doe"),
		trade(11, "MSFT:US", "John Smith"),
	}}
	prices := newMemPriceStore()
	provider := &stubProvider{}

	s := NewScheduler(trades, prices, provider, 45, 250*time.Millisecond)
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	s.now = func() time.Time { return testNow }

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slept) != 2 {
		t.Fatalf("expected one throttle sleep per provider call, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 250*time.Millisecond {
			t.Fatalf("expected 250ms delay, got %s", d)
		}
	}
}
