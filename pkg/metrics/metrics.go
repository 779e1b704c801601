package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesScraped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_pages_scraped_total",
		Help: "Total number of listing pages fetched",
	}, []string{"status"})

	RecordsScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trade_records_scraped_total",
		Help: "Total number of trade records parsed from the listing",
	})

	RecordsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_records_loaded_total",
		Help: "Trade records handled by the loader",
	}, []string{"outcome"}) // inserted, duplicate, invalid_date

	BackfillProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backfill_provider_calls_total",
		Help: "Market data provider calls issued by the backfill",
	}, []string{"status"})

	BackfillPointsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backfill_price_points_inserted_total",
		Help: "Price points inserted by the backfill",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scrape_run_duration_seconds",
		Help:    "Wall clock duration of a full scrape run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_http_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "route", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_http_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
