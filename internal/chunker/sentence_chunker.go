package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"newsqa/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
// The article title line is repeated at the top of every chunk so that each
// chunk stays attributable once retrieved on its own.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	header, body := splitHeader(document.Text)
	sentences := c.splitter.FindAllString(body+"\n", -1)
	var cleaned []string
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		trimmed := strings.TrimSpace(document.Text)
		if trimmed == "" {
			return nil, nil
		}
		return []domain.Chunk{newChunk(document, 0, trimmed)}, nil
	}
	var chunks []domain.Chunk
	i := 0
	idx := 0
	for i < len(cleaned) {
		end := i + c.sentencesPerChunk
		if end > len(cleaned) {
			end = len(cleaned)
		}
		text := strings.Join(cleaned[i:end], " ")
		if header != "" {
			text = header + "\n\n" + text
		}
		chunks = append(chunks, newChunk(document, idx, text))
		if end == len(cleaned) {
			break
		}
		i = end - c.overlapSentences
		idx++
	}
	return chunks, nil
}

// splitHeader separates a leading "TÍTULO: ..." line from the body.
func splitHeader(text string) (string, string) {
	if !strings.HasPrefix(text, "TÍTULO:") {
		return "", text
	}
	header, body, found := strings.Cut(text, "\n")
	if !found {
		return "", text
	}
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "CONTENIDO:")
	return strings.TrimSpace(header), body
}

func newChunk(d domain.Document, idx int, text string) domain.Chunk {
	return domain.Chunk{
		DocumentID: d.ID,
		ChunkID:    d.ID + ":" + strconv.Itoa(idx),
		Source:     d.Source,
		Text:       text,
		Index:      idx,
	}
}

// Whole indexes every document as a single chunk.
type Whole struct{}

func (Whole) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Text) == "" {
		return nil, nil
	}
	return []domain.Chunk{newChunk(document, 0, document.Text)}, nil
}
