package vectorstore

import (
	"context"

	"newsqa/internal/domain"
)

// Storage holds chunk vectors and supports similarity search.
type Storage interface {
	Init(dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	Count() int
}
