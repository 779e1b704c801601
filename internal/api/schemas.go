package api

import (
	"time"

	"github.com/dmelo/capitol-tracker/internal/domain"
)

type PurchasesResponse struct {
	Purchases []domain.TradeRecord `json:"purchases"`
	Count     int                  `json:"count"`
}

type SymbolPurchasesResponse struct {
	Symbol    string               `json:"symbol"`
	Purchases []domain.TradeRecord `json:"purchases"`
	Count     int                  `json:"count"`
}

type SymbolPricesResponse struct {
	Symbol string              `json:"symbol"`
	Prices []domain.PricePoint `json:"prices"`
	Count  int                 `json:"count"`
}

type ActivityResponse struct {
	WindowDays int                     `json:"window_days"`
	Activity   []domain.SymbolActivity `json:"activity"`
	Count      int                     `json:"count"`
}

type ScrapeResponse struct {
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database DatabaseStats `json:"database"`
	API      APIStats      `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type APIStats struct {
	ActiveGoroutines int `json:"active_goroutines"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
