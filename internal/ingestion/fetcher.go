package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/internal/httputil"
	"github.com/dmelo/capitol-tracker/pkg/logger"
)

// Listing row cell positions and the minimum cell count a row needs before
// it is worth normalizing. Short rows (ads, separators) are skipped.
const (
	buyerCol    = 0
	symbolCol   = 1
	dateCol     = 3
	priceCol    = 8
	minRowCells = 9
)

// The listing blocks default Go user agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// PageFetcher retrieves and parses one page of the disclosed-purchases
// listing. Transient failures are retried with exponential backoff; a page
// that exhausts its attempts reports an error but never fails the run.
type PageFetcher struct {
	baseURL string
	client  *http.Client
	retry   httputil.RetryConfig
}

func NewPageFetcher(baseURL string, timeout time.Duration, retry httputil.RetryConfig) *PageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PageFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   retry,
	}
}

func (f *PageFetcher) pageURL(page int) string {
	return fmt.Sprintf("%s?txType=buy&assetType=stock&sortBy=-txDate&page=%d", f.baseURL, page)
}

// FetchPage returns the trade records on one listing page, preserving the
// source row order. A page without a results table is an empty page, not an
// error.
func (f *PageFetcher) FetchPage(ctx context.Context, page int) ([]domain.TradeRecord, error) {
	resp, err := httputil.Do(ctx, f.client, f.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL(page), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("page %d: parse html: %w", page, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		logger.Warn("no trade table on page", zap.Int("page", page))
		return nil, nil
	}

	var records []domain.TradeRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := row.Find("td")
		if cells.Length() < minRowCells {
			return
		}
		records = append(records, NormalizeRow(
			cells.Eq(buyerCol).Text(),
			cells.Eq(symbolCol).Text(),
			cells.Eq(dateCol).Text(),
			cells.Eq(priceCol).Text(),
		))
	})

	logger.Debug("page scraped", zap.Int("page", page), zap.Int("records", len(records)))
	return records, nil
}
