package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/ingestion"
	"github.com/dmelo/capitol-tracker/pkg/logger"
)

// ScrapeService runs the full listing pipeline: fan-out page fetch,
// then the deduplicating load.
type ScrapeService struct {
	coordinator *ingestion.Coordinator
	loader      *ingestion.DedupLoader
	maxPages    int
}

func NewScrapeService(coordinator *ingestion.Coordinator, loader *ingestion.DedupLoader, maxPages int) *ScrapeService {
	if maxPages <= 0 {
		maxPages = 40
	}
	return &ScrapeService{coordinator: coordinator, loader: loader, maxPages: maxPages}
}

type ScrapeSummary struct {
	Pages       int           `json:"pages"`
	FailedPages []int         `json:"failed_pages,omitempty"`
	Scraped     int           `json:"scraped"`
	Inserted    int64         `json:"inserted"`
	Duplicates  int           `json:"duplicates"`
	InvalidDate int           `json:"invalid_date"`
	Cleaned     int64         `json:"cleaned"`
	Elapsed     time.Duration `json:"-"`
}

func (s *ScrapeService) Run(ctx context.Context) (*ScrapeSummary, error) {
	scrape := s.coordinator.ScrapeRange(ctx, s.maxPages)

	load, err := s.loader.Load(ctx, scrape.Records)
	if err != nil {
		return nil, err
	}

	summary := &ScrapeSummary{
		Pages:       s.maxPages,
		FailedPages: scrape.FailedPages,
		Scraped:     len(scrape.Records),
		Inserted:    load.Inserted,
		Duplicates:  load.Duplicates,
		InvalidDate: load.InvalidDate,
		Cleaned:     load.Cleaned,
		Elapsed:     scrape.Elapsed,
	}

	logger.Info("scrape pipeline finished",
		zap.Int("scraped", summary.Scraped),
		zap.Int64("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}
