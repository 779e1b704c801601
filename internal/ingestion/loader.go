package ingestion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmelo/capitol-tracker/internal/domain"
	"github.com/dmelo/capitol-tracker/pkg/logger"
	"github.com/dmelo/capitol-tracker/pkg/metrics"
)

// DedupLoader filters scraped records against the persisted composite keys
// and inserts the novel ones as a single batch. Re-running it with the same
// input is a no-op. Any store failure aborts the load.
type DedupLoader struct {
	store domain.TradeStore
}

func NewDedupLoader(store domain.TradeStore) *DedupLoader {
	return &DedupLoader{store: store}
}

type LoadResult struct {
	Candidates  int
	Inserted    int64
	Duplicates  int
	InvalidDate int
	Cleaned     int64
}

func (l *DedupLoader) Load(ctx context.Context, records []domain.TradeRecord) (*LoadResult, error) {
	existing, err := l.store.ExistingKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing keys: %w", err)
	}

	res := &LoadResult{Candidates: len(records)}
	seen := make(map[domain.TradeKey]struct{}, len(records))
	novel := make([]domain.TradeRecord, 0, len(records))

	for _, rec := range records {
		key, ok := rec.Key()
		if !ok {
			res.InvalidDate++
			metrics.RecordsLoaded.WithLabelValues("invalid_date").Inc()
			logger.Debug("skipping record with unresolved date",
				zap.String("symbol", rec.Symbol),
				zap.String("buyer", rec.BuyerName))
			continue
		}
		if _, dup := existing[key]; dup {
			res.Duplicates++
			metrics.RecordsLoaded.WithLabelValues("duplicate").Inc()
			continue
		}
		if _, dup := seen[key]; dup {
			res.Duplicates++
			metrics.RecordsLoaded.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[key] = struct{}{}
		novel = append(novel, rec)
	}

	if len(novel) > 0 {
		inserted, err := l.store.InsertBatch(ctx, novel)
		if err != nil {
			return nil, fmt.Errorf("insert batch: %w", err)
		}
		res.Inserted = inserted
		metrics.RecordsLoaded.WithLabelValues("inserted").Add(float64(inserted))
	}

	// Guard against rows from earlier runs that slipped through with a
	// sentinel symbol/name or a null price.
	cleaned, err := l.store.DeleteUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}
	res.Cleaned = cleaned

	logger.Info("load finished",
		zap.Int("candidates", res.Candidates),
		zap.Int64("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("invalid_date", res.InvalidDate),
		zap.Int64("cleaned", res.Cleaned))

	return res, nil
}
