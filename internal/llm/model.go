// Package llm adapts a langchaingo chat model to the completion ports used
// by the classifier, the answer generators and the conversation memory.
package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"newsqa/internal/logging"
)

// Config configures an OpenAI-compatible chat model.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// Model is a chat model bound to one temperature.
type Model struct {
	llm         llms.Model
	temperature float64
	logger      *zap.Logger
}

// NewOpenAI creates a Model backed by langchaingo's OpenAI client.
func NewOpenAI(cfg Config, logger *zap.Logger) (*Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key required")
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return New(client, cfg.Temperature, logger), nil
}

// New wraps an existing langchaingo model.
func New(model llms.Model, temperature float64, logger *zap.Logger) *Model {
	return &Model{llm: model, temperature: temperature, logger: logging.OrNop(logger)}
}

// WithTemperature returns a copy of m sharing the same client.
func (m *Model) WithTemperature(t float64) *Model {
	c := *m
	c.temperature = t
	return &c
}

// Complete returns the whole response for prompt.
func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt, llms.WithTemperature(m.temperature))
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	m.logger.Debug("completion done", zap.Int("prompt_chars", len(prompt)), zap.Int("response_chars", len(out)))
	return out, nil
}

// CompleteStream yields the response as the model produces it.
func (m *Model) CompleteStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return Stream(ctx, func(ctx context.Context, emit func(string) error) error {
		_, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt,
			llms.WithTemperature(m.temperature),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				return emit(string(chunk))
			}),
		)
		if err != nil {
			return fmt.Errorf("streaming completion: %w", err)
		}
		return nil
	})
}
