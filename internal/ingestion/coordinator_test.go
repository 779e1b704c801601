package ingestion

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

type stubFetcher struct {
	failPages map[int]bool
	jitter    bool
}

func (s *stubFetcher) FetchPage(ctx context.Context, page int) ([]domain.TradeRecord, error) {
	if s.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	if s.failPages[page] {
		return nil, fmt.Errorf("page %d: all attempts failed", page)
	}
	d := time.Date(2024, time.March, page, 0, 0, 0, 0, time.UTC)
	return []domain.TradeRecord{
		{PurchaseDate: &d, Symbol: fmt.Sprintf("SYM%d:US", page), BuyerName: "Jane Doe"},
	}, nil
}

func keySet(records []domain.TradeRecord) map[domain.TradeKey]int {
	set := make(map[domain.TradeKey]int)
	for _, r := range records {
		k, _ := r.Key()
		set[k]++
	}
	return set
}

func TestScrapeRangeAggregatesAllPages(t *testing.T) {
	c := NewCoordinator(&stubFetcher{}, 3)

	res := c.ScrapeRange(context.Background(), 10)

	if len(res.Records) != 10 {
		t.Fatalf("expected 10 records, got %d", len(res.Records))
	}
	if len(res.FailedPages) != 0 {
		t.Fatalf("expected no failed pages, got %v", res.FailedPages)
	}
	if res.Elapsed <= 0 {
		t.Fatal("expected elapsed time to be reported")
	}
}

func TestScrapeRangeCountsFailuresWithoutAborting(t *testing.T) {
	c := NewCoordinator(&stubFetcher{failPages: map[int]bool{3: true, 7: true}}, 4)

	res := c.ScrapeRange(context.Background(), 8)

	if len(res.Records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(res.Records))
	}
	if len(res.FailedPages) != 2 || res.FailedPages[0] != 3 || res.FailedPages[1] != 7 {
		t.Fatalf("expected failed pages [3 7], got %v", res.FailedPages)
	}
}

func TestScrapeRangeOrderIndependent(t *testing.T) {
	// Jittered completion order must not change the aggregated set.
	baseline := NewCoordinator(&stubFetcher{}, 1).ScrapeRange(context.Background(), 12)

	for i := 0; i < 3; i++ {
		res := NewCoordinator(&stubFetcher{jitter: true}, 6).ScrapeRange(context.Background(), 12)

		got, want := keySet(res.Records), keySet(baseline.Records)
		if len(got) != len(want) {
			t.Fatalf("run %d: expected %d distinct keys, got %d", i, len(want), len(got))
		}
		for k, n := range want {
			if got[k] != n {
				t.Fatalf("run %d: key %v count mismatch: want %d, got %d", i, k, n, got[k])
			}
		}
	}
}
