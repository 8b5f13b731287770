package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsqa/internal/domain"
	"newsqa/internal/logging"
)

// FetchAll runs every fetcher concurrently and concatenates their results in
// argument order once all of them have finished.
func FetchAll(ctx context.Context, logger *zap.Logger, fetchers ...domain.Fetcher) []domain.Document {
	logger = logging.OrNop(logger)
	results := make([][]domain.Document, len(fetchers))

	var g errgroup.Group
	for i, f := range fetchers {
		g.Go(func() error {
			start := time.Now()
			results[i] = f.Fetch(ctx)
			logger.Debug("fetcher done",
				zap.String("source", f.Name()),
				zap.Int("documents", len(results[i])),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Document
	for _, docs := range results {
		all = append(all, docs...)
	}
	return all
}
