package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartBody = `{
  "chart": {
    "result": [{
      "timestamp": [1710460800, 1710547200, 1710633600],
      "indicators": {"quote": [{"close": [172.5, null, 173.25]}]}
    }],
    "error": null
  }
}`

func TestDailyHistoryStripsSuffixAndSkipsNullCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("expected suffix-stripped path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("expected 1d interval, got %q", r.URL.Query().Get("interval"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)

	points, err := c.DailyHistory(context.Background(),
		"AAPL:US",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("expected 2 points (null close skipped), got %d", len(points))
	}
	if points[0].Symbol != "AAPL:US" {
		t.Fatalf("points must keep the full symbol, got %s", points[0].Symbol)
	}
	if points[0].Date.Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("unexpected first date: %s", points[0].Date)
	}
	if points[0].Price.String() != "172.5" {
		t.Fatalf("unexpected first price: %s", points[0].Price)
	}
	if points[0].IsPrediction {
		t.Fatal("backfill points must not be predictions")
	}
}

func TestDailyHistoryEmptySeriesIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)

	points, err := c.DailyHistory(context.Background(), "ZZZZ:US", time.Now().AddDate(0, 0, -10), time.Now())
	if err != nil {
		t.Fatalf("empty series must not be an error, got %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points, got %d", len(points))
	}
}

func TestDailyHistoryProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)

	_, err := c.DailyHistory(context.Background(), "BOGUS:US", time.Now().AddDate(0, 0, -10), time.Now())
	if err == nil {
		t.Fatal("expected provider error to surface")
	}
}
