package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"newsqa/internal/domain"
)

var summaryPrompt = prompts.NewPromptTemplate(`Progressively summarize the lines of conversation provided, adding onto the previous summary returning a new summary.

Current summary:
{{.summary}}

New lines of conversation:
Human: {{.input}}
AI: {{.output}}

New summary:`, []string{"summary", "input", "output"})

// LLMSummarizer asks the model to extend the summary with each new turn.
type LLMSummarizer struct {
	model domain.Completer
}

// NewLLMSummarizer expects a deterministic (temperature 0) completer.
func NewLLMSummarizer(model domain.Completer) (*LLMSummarizer, error) {
	if model == nil {
		return nil, errors.New("memory: summary model required")
	}
	return &LLMSummarizer{model: model}, nil
}

// Summarize returns the summary extended with turn.
func (s *LLMSummarizer) Summarize(ctx context.Context, summary string, turn domain.Turn) (string, error) {
	prompt, err := summaryPrompt.Format(map[string]any{
		"summary": summary,
		"input":   turn.Input,
		"output":  turn.Output,
	})
	if err != nil {
		return "", fmt.Errorf("formatting summary prompt: %w", err)
	}
	out, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
