package domain

import (
	"context"
	"iter"
)

// Document is a single news page extracted by a Fetcher.
type Document struct {
	ID     string
	Text   string
	Source string
	URL    string
}

// Chunk is the unit stored in the index. Without a chunker each document
// becomes exactly one chunk.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Category is the routing decision for a question.
type Category string

const (
	CategoryNews    Category = "NOTICIAS"
	CategoryGeneral Category = "GENERAL"
)

// Turn is one question/answer exchange.
type Turn struct {
	Input  string
	Output string
}

// Fetcher crawls one news source. Failures yield an empty slice.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) []Document
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Completer returns the whole model response for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StreamCompleter yields the model response as it is produced. Breaking out
// of the iteration releases the underlying call.
type StreamCompleter interface {
	CompleteStream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Classifier routes a question to a category.
type Classifier interface {
	Classify(ctx context.Context, question string) (Category, error)
}

// Generator streams an answer for a question.
type Generator interface {
	Generate(ctx context.Context, question string) iter.Seq2[string, error]
}

// Summarizer folds a turn into an existing summary.
type Summarizer interface {
	Summarize(ctx context.Context, summary string, turn Turn) (string, error)
}

// Memory records finished turns.
type Memory interface {
	SaveContext(ctx context.Context, turn Turn) error
}
