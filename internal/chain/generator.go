package chain

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"newsqa/internal/domain"
	"newsqa/internal/index"
	"newsqa/internal/logging"
)

// ErrNilIndex is returned when a news generator is built without an index.
var ErrNilIndex = errors.New("chain: news index not built")

// NewsGenerator answers from the top-K news chunks retrieved for the question.
type NewsGenerator struct {
	model  domain.StreamCompleter
	index  *index.Index
	k      int
	logger *zap.Logger
}

// NewNewsGenerator requires a built index. k <= 0 uses index.DefaultTopK.
func NewNewsGenerator(model domain.StreamCompleter, idx *index.Index, k int, logger *zap.Logger) (*NewsGenerator, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	if model == nil {
		return nil, errors.New("chain: news model required")
	}
	if k <= 0 {
		k = index.DefaultTopK
	}
	return &NewsGenerator{model: model, index: idx, k: k, logger: logging.OrNop(logger)}, nil
}

// Generate retrieves context and streams the answer. Retrieval errors are
// yielded before any fragment.
func (g *NewsGenerator) Generate(ctx context.Context, question string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		newsContext, err := g.index.Context(ctx, question, g.k)
		if err != nil {
			yield("", fmt.Errorf("retrieving news context: %w", err))
			return
		}
		g.logger.Debug("news context retrieved", zap.Int("context_chars", len(newsContext)))
		prompt, err := newsPrompt.Format(map[string]any{
			"context":  newsContext,
			"question": question,
		})
		if err != nil {
			yield("", fmt.Errorf("formatting news prompt: %w", err))
			return
		}
		for chunk, err := range g.model.CompleteStream(ctx, prompt) {
			if !yield(chunk, err) {
				return
			}
		}
	}
}

// GeneralGenerator answers from the model's own knowledge.
type GeneralGenerator struct {
	model domain.StreamCompleter
}

// NewGeneralGenerator creates a generator that ignores the news index.
func NewGeneralGenerator(model domain.StreamCompleter) (*GeneralGenerator, error) {
	if model == nil {
		return nil, errors.New("chain: general model required")
	}
	return &GeneralGenerator{model: model}, nil
}

// Generate streams the answer for question.
func (g *GeneralGenerator) Generate(ctx context.Context, question string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		prompt, err := generalPrompt.Format(map[string]any{"question": question})
		if err != nil {
			yield("", fmt.Errorf("formatting general prompt: %w", err))
			return
		}
		for chunk, err := range g.model.CompleteStream(ctx, prompt) {
			if !yield(chunk, err) {
				return
			}
		}
	}
}
