// Package chromem stores chunk vectors in an in-memory chromem-go collection.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"newsqa/internal/domain"
	"newsqa/internal/logging"
)

// ErrQueryEmbedding is returned if chromem ever tries to embed text itself;
// vectors are always computed by the index before reaching the store.
var ErrQueryEmbedding = errors.New("chromem store expects precomputed embeddings")

// Storage implements vectorstore.Storage on a non-persistent chromem DB.
type Storage struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dimension  int
	logger     *zap.Logger
}

// NewStorage creates an empty store. The collection is created by Init.
func NewStorage(collection string, logger *zap.Logger) *Storage {
	if collection == "" {
		collection = "noticias"
	}
	return &Storage{
		db:     chromem.NewDB(),
		name:   collection,
		logger: logging.OrNop(logger),
	}
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, ErrQueryEmbedding
}

// Init (re)creates the collection for vectors of the given dimension.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if s.collection != nil {
		if err := s.db.DeleteCollection(s.name); err != nil {
			return fmt.Errorf("resetting collection %s: %w", s.name, err)
		}
	}
	c, err := s.db.CreateCollection(s.name, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.name, err)
	}
	s.collection = c
	s.dimension = dimension
	return nil
}

// Upsert adds chunks with their vectors. Zero vectors cannot be normalised by
// chromem and are left out of the collection.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if s.collection == nil {
		return errors.New("chromem store not initialised")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		if isZero(vectors[i]) {
			s.logger.Debug("skipping zero vector", zap.String("chunk_id", ch.ChunkID))
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      ch.ChunkID,
			Content: ch.Text,
			Metadata: map[string]string{
				"document_id": ch.DocumentID,
				"source":      ch.Source,
				"index":       strconv.Itoa(ch.Index),
			},
			Embedding: vectors[i],
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	s.logger.Debug("added documents to chromem", zap.String("collection", s.name), zap.Int("count", len(docs)))
	return nil
}

// Search returns up to topK chunks ordered by cosine similarity.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if s.collection == nil {
		return []domain.SearchResult{}, nil
	}
	if topK <= 0 {
		topK = 3
	}
	// chromem requires nResults <= document count
	count := s.collection.Count()
	if count == 0 || isZero(vector) {
		return []domain.SearchResult{}, nil
	}
	if topK > count {
		topK = count
	}
	res, err := s.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.name, err)
	}
	out := make([]domain.SearchResult, len(res))
	for i, r := range res {
		idx, _ := strconv.Atoi(r.Metadata["index"])
		out[i] = domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: r.Metadata["document_id"],
				ChunkID:    r.ID,
				Source:     r.Metadata["source"],
				Text:       r.Content,
				Index:      idx,
			},
			Score: float64(r.Similarity),
		}
	}
	return out, nil
}

// Count returns the number of stored chunks.
func (s *Storage) Count() int {
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
