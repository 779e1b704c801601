package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

// Client fetches daily closing prices from a Yahoo-style chart endpoint.
// An empty series means "no data for that symbol", never an error.
type Client struct {
	rc *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "capitol-tracker/1.0")
	return &Client{rc: rc}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory returns the close-price series for symbol between start and
// end. The listing's ":CC" country suffix is stripped before querying the
// provider; returned points keep the full symbol so they join against the
// trade rows.
func (c *Client) DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	base := symbol
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		base = symbol[:i]
	}

	var out chartResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
			"interval": "1d",
			"events":   "history",
		}).
		SetResult(&out).
		Get("/v8/finance/chart/" + url.PathEscape(base))
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("history for %s: HTTP %d", symbol, resp.StatusCode())
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("history for %s: %s (%s)",
			symbol, out.Chart.Error.Description, out.Chart.Error.Code)
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := out.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]domain.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // no resolvable close for that day
		}
		day := time.Unix(ts, 0).UTC()
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		points = append(points, domain.PricePoint{
			Symbol: symbol,
			Date:   day,
			Price:  decimal.NewFromFloat(*closes[i]).Round(2),
		})
	}
	return points, nil
}
