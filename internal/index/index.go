// Package index builds the read-only document index queried by the news
// generator.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"newsqa/internal/chunker"
	"newsqa/internal/domain"
	"newsqa/internal/logging"
	"newsqa/internal/vectorstore"
)

// DefaultTopK is the number of documents retrieved for a news question.
const DefaultTopK = 3

// ErrEmptyQuery is returned by Query for blank input.
var ErrEmptyQuery = errors.New("empty query")

// Options are the collaborators used to build an Index.
type Options struct {
	Embedder domain.Embedder
	Store    vectorstore.Storage
	// Chunker defaults to one chunk per document.
	Chunker domain.Chunker
	Logger  *zap.Logger
}

// Index is an immutable similarity index over the startup documents.
// It can only be obtained from Build.
type Index struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	chunks   []domain.Chunk
	logger   *zap.Logger
}

// Build chunks and embeds every document and loads the vectors into the
// store. Any embedder or store failure is returned. An empty document set
// produces a valid, empty index without touching the embedder.
func Build(ctx context.Context, docs []domain.Document, opts Options) (*Index, error) {
	if opts.Embedder == nil {
		return nil, errors.New("index: embedder required")
	}
	if opts.Store == nil {
		return nil, errors.New("index: store required")
	}
	if opts.Chunker == nil {
		opts.Chunker = chunker.Whole{}
	}
	idx := &Index{
		embedder: opts.Embedder,
		store:    opts.Store,
		logger:   logging.OrNop(opts.Logger),
	}

	var texts []string
	for _, d := range docs {
		chunks, err := opts.Chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", d.ID, err)
		}
		for _, ch := range chunks {
			idx.chunks = append(idx.chunks, ch)
			texts = append(texts, ch.Text)
		}
	}
	if len(idx.chunks) == 0 {
		idx.logger.Warn("building empty index; news answers will have no context")
		return idx, nil
	}

	if err := opts.Embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("preparing embedder: %w", err)
	}
	vectors, err := opts.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding documents: got %d vectors for %d chunks", len(vectors), len(texts))
	}
	if err := opts.Store.Init(len(vectors[0])); err != nil {
		return nil, fmt.Errorf("initialising store: %w", err)
	}
	if err := opts.Store.Upsert(ctx, idx.chunks, vectors); err != nil {
		return nil, fmt.Errorf("storing vectors: %w", err)
	}
	idx.logger.Info("index built",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(idx.chunks)),
		zap.String("embedder", opts.Embedder.Name()),
	)
	return idx, nil
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int { return len(i.chunks) }

// Query returns up to k chunks ordered by descending similarity.
func (i *Index) Query(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if len(i.chunks) == 0 {
		return []domain.SearchResult{}, nil
	}
	vec, err := i.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	// Zero vector means no known tokens
	if isZero(vec) {
		return i.lexicalSearch(text, k), nil
	}
	res, err := i.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}
	// All-zero similarity carries no ranking; try term overlap instead
	if allZero(res) {
		if lex := i.lexicalSearch(text, k); len(lex) > 0 {
			return lex, nil
		}
	}
	return res, nil
}

func allZero(res []domain.SearchResult) bool {
	for _, r := range res {
		if math.Abs(r.Score) > 1e-9 {
			return false
		}
	}
	return true
}

// Context returns the text of up to k results joined by a blank line.
func (i *Index) Context(ctx context.Context, question string, k int) (string, error) {
	res, err := i.Query(ctx, question, k)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(res))
	for j, r := range res {
		texts[j] = r.Chunk.Text
	}
	return strings.Join(texts, "\n\n"), nil
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func (i *Index) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := toTokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, 0, len(i.chunks))
	for j, ch := range i.chunks {
		if s := overlapOchiai(qset, ch.Text); s > 0 {
			scores = append(scores, pair{j, s})
		}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, p := range scores[:topK] {
		out = append(out, domain.SearchResult{Chunk: i.chunks[p.idx], Score: p.score})
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over unique lowercase tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / (math.Sqrt(float64(len(qset))) * math.Sqrt(float64(len(seen))))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
