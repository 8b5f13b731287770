// Package memory keeps a running summary of the conversation. The summary is
// recorded after every successful turn and is not fed back into prompts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"newsqa/internal/domain"
	"newsqa/internal/logging"
)

// ConversationMemory folds each finished turn into a summary.
type ConversationMemory struct {
	mu         sync.Mutex
	summarizer domain.Summarizer
	summary    string
	turns      int
	logger     *zap.Logger
}

// New creates an empty memory backed by summarizer.
func New(summarizer domain.Summarizer, logger *zap.Logger) (*ConversationMemory, error) {
	if summarizer == nil {
		return nil, errors.New("memory: summarizer required")
	}
	return &ConversationMemory{summarizer: summarizer, logger: logging.OrNop(logger)}, nil
}

// SaveContext records turn. On failure the previous summary is kept.
func (m *ConversationMemory) SaveContext(ctx context.Context, turn domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.summarizer.Summarize(ctx, m.summary, turn)
	if err != nil {
		return fmt.Errorf("updating conversation summary: %w", err)
	}
	m.summary = next
	m.turns++
	m.logger.Debug("conversation summary updated",
		zap.Int("turns", m.turns),
		zap.Int("summary_chars", len(m.summary)),
	)
	return nil
}

// Summary returns the current running summary.
func (m *ConversationMemory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Turns returns how many turns have been recorded.
func (m *ConversationMemory) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turns
}
