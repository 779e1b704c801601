package ingestion

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/pkg/logger"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// Fetcher retrieves the trade records of a single listing page.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]domain.TradeRecord, error)
}

// Coordinator fans page fetches out across a bounded worker pool and
// aggregates whatever completes, in whatever order. Page failures are
// counted, not propagated; dedup downstream is keyed by content so no
// cross-page ordering is needed.
type Coordinator struct {
	fetcher Fetcher
	workers int
}

func NewCoordinator(fetcher Fetcher, workers int) *Coordinator {
	if workers <= 0 {
		workers = 5
	}
	return &Coordinator{fetcher: fetcher, workers: workers}
}

type ScrapeResult struct {
	Records     []domain.TradeRecord
	FailedPages []int
	Elapsed     time.Duration
}

type pageResult struct {
	page    int
	records []domain.TradeRecord
	err     error
}

// ScrapeRange scrapes pages [1, maxPages]. The single collector loop below
// is the only place results are accumulated, so no locking is needed.
func (c *Coordinator) ScrapeRange(ctx context.Context, maxPages int) *ScrapeResult {
	start := time.Now()

	results := make(chan pageResult, maxPages)
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	for page := 1; page <= maxPages; page++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := c.fetcher.FetchPage(ctx, p)
			results <- pageResult{page: p, records: records, err: err}
		}(page)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &ScrapeResult{}
	for pr := range results {
		if pr.err != nil {
			logger.Warn("page failed after retries",
				zap.Int("page", pr.page),
				zap.Error(pr.err))
			metrics.PagesScraped.WithLabelValues("error").Inc()
			res.FailedPages = append(res.FailedPages, pr.page)
			continue
		}
		metrics.PagesScraped.WithLabelValues("ok").Inc()
		res.Records = append(res.Records, pr.records...)
	}
	sort.Ints(res.FailedPages)

	res.Elapsed = time.Since(start)
	metrics.RecordsScraped.Add(float64(len(res.Records)))
	metrics.ScrapeDuration.Observe(res.Elapsed.Seconds())

	logger.Info("scrape finished",
		zap.Int("pages", maxPages),
		zap.Int("records", len(res.Records)),
		zap.Int("failed_pages", len(res.FailedPages)),
		zap.Duration("elapsed", res.Elapsed))

	return res
}
