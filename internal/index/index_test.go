package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsqa/internal/chunker"
	"newsqa/internal/domain"
	"newsqa/internal/embedding/tfidf"
	"newsqa/internal/vectorstore"
	"newsqa/internal/vectorstore/chromem"
	"newsqa/internal/vectorstore/memory"
)

// keywordEmbedder maps each text to a vector by keyword presence so that
// similarity scores are predictable.
type keywordEmbedder struct {
	keywords []string
	calls    int
	err      error
}

func (e *keywordEmbedder) Name() string           { return "keyword" }
func (e *keywordEmbedder) Prepare([]string) error { return nil }

func (e *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.keywords))
	lower := strings.ToLower(text)
	for i, k := range e.keywords {
		v[i] = float32(strings.Count(lower, k))
	}
	return v
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func seedDocs() []domain.Document {
	return []domain.Document{
		{ID: "x", Source: "cnn-espanol", Text: "TÍTULO: X\n\nCONTENIDO: foo bar"},
		{ID: "y", Source: "cbc-news", Text: "TÍTULO: Y\n\nCONTENIDO: baz qux"},
	}
}

func TestBuild_EmptyDocumentsSucceeds(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"foo"}}
	idx, err := Build(context.Background(), nil, Options{Embedder: emb, Store: memory.NewStorage(), Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	assert.Zero(t, emb.calls)

	res, err := idx.Query(context.Background(), "¿qué pasó hoy?", 3)
	require.NoError(t, err)
	assert.Empty(t, res)

	text, err := idx.Context(context.Background(), "¿qué pasó hoy?", 3)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestBuild_EmbedderFailureIsFatal(t *testing.T) {
	boom := errors.New("embedding endpoint down")
	emb := &keywordEmbedder{keywords: []string{"foo"}, err: boom}

	idx, err := Build(context.Background(), seedDocs(), Options{Embedder: emb, Store: memory.NewStorage()})
	assert.Nil(t, idx)
	assert.ErrorIs(t, err, boom)
}

func TestBuild_RequiresCollaborators(t *testing.T) {
	_, err := Build(context.Background(), seedDocs(), Options{Store: memory.NewStorage()})
	assert.Error(t, err)
	_, err = Build(context.Background(), seedDocs(), Options{Embedder: &keywordEmbedder{}})
	assert.Error(t, err)
}

func TestQuery_OrdersBySimilarityAndCapsK(t *testing.T) {
	ctx := context.Background()
	docs := append(seedDocs(),
		domain.Document{ID: "z", Text: "TÍTULO: Z\n\nCONTENIDO: foo foo baz"},
		domain.Document{ID: "w", Text: "TÍTULO: W\n\nCONTENIDO: nada"},
	)
	emb := &keywordEmbedder{keywords: []string{"foo", "baz", "nada"}}
	idx, err := Build(ctx, docs, Options{Embedder: emb, Store: memory.NewStorage()})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	res, err := idx.Query(ctx, "foo", DefaultTopK)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "x", res[0].Chunk.DocumentID)
	assert.Equal(t, "z", res[1].Chunk.DocumentID)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestQuery_LexicalFallbackOnZeroVector(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{keywords: []string{"nunca"}}
	idx, err := Build(ctx, seedDocs(), Options{Embedder: emb, Store: memory.NewStorage()})
	require.NoError(t, err)

	res, err := idx.Query(ctx, "qux", 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "y", res[0].Chunk.DocumentID)
}

func TestQuery_EmptyQuery(t *testing.T) {
	idx, err := Build(context.Background(), seedDocs(), Options{Embedder: &keywordEmbedder{keywords: []string{"foo"}}, Store: memory.NewStorage()})
	require.NoError(t, err)
	_, err = idx.Query(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestContext_JoinsWithBlankLine(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{keywords: []string{"foo", "baz"}}
	idx, err := Build(ctx, seedDocs(), Options{Embedder: emb, Store: memory.NewStorage()})
	require.NoError(t, err)

	text, err := idx.Context(ctx, "foo baz", 3)
	require.NoError(t, err)
	assert.Contains(t, text, "TÍTULO: X\n\nCONTENIDO: foo bar")
	assert.Contains(t, text, "TÍTULO: Y\n\nCONTENIDO: baz qux")
	parts := strings.Split(text, "\n\nTÍTULO: ")
	assert.Len(t, parts, 2)
}

func TestBuild_TFIDFWithChromemAndChunker(t *testing.T) {
	ctx := context.Background()
	docs := []domain.Document{
		{ID: "eco", Source: "cnn-espanol", Text: "TÍTULO: Economía\n\nCONTENIDO: La inflación bajó en marzo. El banco central mantuvo las tasas."},
		{ID: "dep", Source: "cbc-news", Text: "TÍTULO: Hockey\n\nCONTENIDO: The Leafs won the playoff game. Fans celebrated downtown."},
	}
	idx, err := Build(ctx, docs, Options{
		Embedder: tfidf.NewEmbedder(),
		Store:    chromem.NewStorage("test", zap.NewNop()),
		Chunker:  chunker.NewSentenceChunker(1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	res, err := idx.Query(ctx, "¿Qué pasó con la inflación?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "eco", res[0].Chunk.DocumentID)
	assert.Contains(t, res[0].Chunk.Text, "inflación")
}

// fixedEmbedder returns preset vectors, allowing negative similarities.
type fixedEmbedder struct {
	docs  map[string][]float32
	query []float32
}

func (e *fixedEmbedder) Name() string           { return "fixed" }
func (e *fixedEmbedder) Prepare([]string) error { return nil }

func (e *fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.docs[t]
	}
	return out, nil
}

func (e *fixedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return e.query, nil
}

func TestQuery_NegativeSimilaritiesKeepVectorRanking(t *testing.T) {
	stores := map[string]func() vectorstore.Storage{
		"memory":  func() vectorstore.Storage { return memory.NewStorage() },
		"chromem": func() vectorstore.Storage { return chromem.NewStorage("negativos", zap.NewNop()) },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			docs := seedDocs()
			emb := &fixedEmbedder{
				docs: map[string][]float32{
					docs[0].Text: {-1, 0},
					docs[1].Text: {-1, 0.1},
				},
				query: []float32{1, 0},
			}
			idx, err := Build(ctx, docs, Options{Embedder: emb, Store: newStore()})
			require.NoError(t, err)

			res, err := idx.Query(ctx, "¿algo nuevo?", DefaultTopK)
			require.NoError(t, err)
			require.Len(t, res, 2)
			assert.Equal(t, "y", res[0].Chunk.DocumentID)
			assert.Equal(t, "x", res[1].Chunk.DocumentID)
			assert.Less(t, res[0].Score, 0.0)
			assert.Greater(t, res[0].Score, res[1].Score)

			text, err := idx.Context(ctx, "¿algo nuevo?", DefaultTopK)
			require.NoError(t, err)
			assert.Equal(t, docs[1].Text+"\n\n"+docs[0].Text, text)
		})
	}
}
