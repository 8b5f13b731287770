package memory

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"newsqa/internal/domain"
)

var (
	tokenRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
)

// FrequencySummarizer keeps the highest-ranked sentences of the
// conversation, scored by word frequency with stopwords filtered. It needs
// no model call.
type FrequencySummarizer struct {
	maxSentences int
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer keeps at most maxSentences sentences (default 5).
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	return &FrequencySummarizer{maxSentences: maxSentences, stopwords: defaultStopwords()}
}

// Summarize ranks the sentences of the previous summary plus the new turn.
func (s *FrequencySummarizer) Summarize(_ context.Context, summary string, turn domain.Turn) (string, error) {
	text := strings.Join([]string{summary, turn.Input, turn.Output}, "\n")
	var sentences []string
	for _, raw := range sentenceRe.FindAllString(text, -1) {
		if sent := strings.TrimSpace(raw); sent != "" && len(s.tokens(sent)) > 0 {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) <= s.maxSentences {
		return strings.Join(sentences, " "), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok] / maxF
		}
		// Normalise by length so long sentences do not dominate
		scores[i] = ranked{i, score / math.Sqrt(float64(len(toks)))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, s.maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	var out []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "it", "this", "that", "from", "so", "into", "about", "can", "will", "just", "now",
		"el", "la", "los", "las", "un", "una", "y", "o", "pero", "si", "de", "del", "al", "en", "con", "por", "para", "es", "son", "fue", "que", "qué", "se", "su", "sus", "lo", "le", "como", "más", "muy", "ya", "este", "esta", "hay", "sobre",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
