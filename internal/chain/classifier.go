// Package chain holds the question classifier and the two answer
// generators that sit between the interactive loop and the model.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsqa/internal/domain"
)

// Classifier asks the model whether a question needs the news index.
type Classifier struct {
	model domain.Completer
}

// NewClassifier creates a classifier over a deterministic completer.
func NewClassifier(model domain.Completer) (*Classifier, error) {
	if model == nil {
		return nil, errors.New("chain: classifier model required")
	}
	return &Classifier{model: model}, nil
}

// Classify returns CategoryNews only when the model answers exactly
// NOTICIAS or NEWS after normalisation. Anything else is general.
func (c *Classifier) Classify(ctx context.Context, question string) (domain.Category, error) {
	prompt, err := classifierPrompt.Format(map[string]any{"question": question})
	if err != nil {
		return "", fmt.Errorf("formatting classifier prompt: %w", err)
	}
	out, err := c.model.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classifying question: %w", err)
	}
	return ParseCategory(out), nil
}

// ParseCategory maps a raw model label onto a category.
func ParseCategory(label string) domain.Category {
	switch normalizeLabel(label) {
	case "NOTICIAS", "NEWS":
		return domain.CategoryNews
	default:
		return domain.CategoryGeneral
	}
}

func normalizeLabel(s string) string {
	const cutset = "\"'`“”«» \t\r\n"
	s = strings.Trim(s, cutset)
	s = strings.TrimSuffix(s, ".")
	s = strings.Trim(s, cutset)
	return strings.ToUpper(s)
}
