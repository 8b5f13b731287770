package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsqa/internal/console"
	"newsqa/internal/domain"
)

type fakeClassifier struct {
	category domain.Category
	err      error
	seen     []string
}

func (f *fakeClassifier) Classify(_ context.Context, q string) (domain.Category, error) {
	f.seen = append(f.seen, q)
	return f.category, f.err
}

type fakeGenerator struct {
	chunks []string
	err    error
	seen   []string
}

func (f *fakeGenerator) Generate(_ context.Context, q string) iter.Seq2[string, error] {
	f.seen = append(f.seen, q)
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

type fakeMemory struct {
	turns []domain.Turn
	err   error
}

func (f *fakeMemory) SaveContext(_ context.Context, turn domain.Turn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}

type harness struct {
	classifier *fakeClassifier
	news       *fakeGenerator
	general    *fakeGenerator
	memory     *fakeMemory
	interrupts chan os.Signal
	out        *bytes.Buffer
	errOut     *bytes.Buffer
}

func newHarness(category domain.Category) *harness {
	return &harness{
		classifier: &fakeClassifier{category: category},
		news:       &fakeGenerator{chunks: []string{"Según ", "CNN..."}},
		general:    &fakeGenerator{chunks: []string{"Respuesta ", "general."}},
		memory:     &fakeMemory{},
		out:        &bytes.Buffer{},
		errOut:     &bytes.Buffer{},
	}
}

func (h *harness) run(t *testing.T, input string) {
	t.Helper()
	s, err := New(Config{
		Classifier: h.classifier,
		News:       h.news,
		General:    h.general,
		Memory:     h.memory,
		In:         strings.NewReader(input),
		Interrupts: h.interrupts,
		Printer:    console.New(h.out, h.errOut),
	})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))
}

func TestRun_ExitWordVariants(t *testing.T) {
	inputs := []string{
		"salir\nesto no se lee\n",
		"SALIR\nesto no se lee\n",
		"  Salir  \nesto no se lee\n",
		"salir",
	}
	for _, input := range inputs {
		t.Run(strings.Fields(input)[0], func(t *testing.T) {
			h := newHarness(domain.CategoryNews)
			h.run(t, input)

			assert.Empty(t, h.classifier.seen)
			assert.Empty(t, h.memory.turns)
			assert.Equal(t, console.Prompt, h.out.String())
		})
	}
}

func TestRun_RoutesNewsQuestion(t *testing.T) {
	h := newHarness(domain.CategoryNews)
	h.run(t, "¿Qué pasó hoy?\nsalir\n")

	assert.Equal(t, []string{"¿Qué pasó hoy?"}, h.news.seen)
	assert.Empty(t, h.general.seen)
	require.Len(t, h.memory.turns, 1)
	assert.Equal(t, domain.Turn{Input: "¿Qué pasó hoy?", Output: "Según CNN..."}, h.memory.turns[0])

	want := "Tu pregunta: " +
		"Clasificando pregunta...\n" +
		"Clasificación: NOTICIAS\n" +
		"Buscando información en noticias...\n" +
		"Respuesta: Según CNN...\n\n" +
		"Tu pregunta: "
	assert.Equal(t, want, h.out.String())
}

func TestRun_RoutesGeneralQuestion(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.run(t, "¿Qué es la fotosíntesis?\nsalir\n")

	assert.Empty(t, h.news.seen)
	assert.Equal(t, []string{"¿Qué es la fotosíntesis?"}, h.general.seen)
	assert.Contains(t, h.out.String(), "Generando respuesta general...\n")
	require.Len(t, h.memory.turns, 1)
	assert.Equal(t, "Respuesta general.", h.memory.turns[0].Output)
}

func TestRun_GenerationErrorSkipsMemoryAndContinues(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.general.err = errors.New("connection reset")
	h.run(t, "primera\nsegunda\nsalir\n")

	assert.Empty(t, h.memory.turns)
	assert.Equal(t, []string{"primera", "segunda"}, h.classifier.seen)
	assert.Equal(t, 2, strings.Count(h.errOut.String(), "Error al procesar la pregunta: connection reset"))
	assert.Equal(t, 3, strings.Count(h.out.String(), console.Prompt))
}

func TestRun_ClassifierErrorSkipsGeneration(t *testing.T) {
	h := newHarness(domain.CategoryNews)
	h.classifier.err = errors.New("invalid api key")
	h.run(t, "¿Qué pasó?\nsalir\n")

	assert.Empty(t, h.news.seen)
	assert.Empty(t, h.general.seen)
	assert.Empty(t, h.memory.turns)
	assert.Contains(t, h.errOut.String(), "Error al procesar la pregunta: invalid api key")
	assert.NotContains(t, h.out.String(), "Respuesta:")
}

func TestRun_MemoryErrorIsReported(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.memory.err = errors.New("summary failed")
	h.run(t, "hola\nsalir\n")

	assert.Contains(t, h.out.String(), "Respuesta: Respuesta general.\n\n")
	assert.Contains(t, h.errOut.String(), "Error al procesar la pregunta: summary failed")
}

func TestRun_EmptyLinesRepromptWithoutTurn(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.run(t, "\n   \nsalir\n")

	assert.Empty(t, h.classifier.seen)
	assert.Equal(t, 3, strings.Count(h.out.String(), console.Prompt))
}

func TestRun_EndOfInputTerminates(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.run(t, "una pregunta sin salto")

	assert.Equal(t, []string{"una pregunta sin salto"}, h.classifier.seen)
	require.Len(t, h.memory.turns, 1)

	h = newHarness(domain.CategoryGeneral)
	h.run(t, "")
	assert.Empty(t, h.classifier.seen)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	s, err := New(Config{
		Classifier: h.classifier,
		News:       h.news,
		General:    h.general,
		Memory:     h.memory,
		In:         strings.NewReader("hola\n"),
		Printer:    console.New(h.out, h.errOut),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Empty(t, h.classifier.seen)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	h := newHarness(domain.CategoryGeneral)
	s, err := New(Config{
		Classifier: h.classifier,
		News:       h.news,
		General:    h.general,
		Memory:     h.memory,
		In:         strings.NewReader(""),
		Printer:    console.New(h.out, nil),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
}

// interruptingGenerator streams one fragment, raises an interrupt and waits
// for its context to be cancelled.
type interruptingGenerator struct {
	interrupts chan<- os.Signal
}

func (g *interruptingGenerator) Generate(ctx context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("parcial", nil) {
			return
		}
		g.interrupts <- os.Interrupt
		select {
		case <-ctx.Done():
			yield("", ctx.Err())
		case <-time.After(2 * time.Second):
			yield("", errors.New("answer was not cancelled"))
		}
	}
}

func TestRun_InterruptCancelsAnswerAndContinues(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.interrupts = make(chan os.Signal, 1)
	gen := &interruptingGenerator{interrupts: h.interrupts}

	s, err := New(Config{
		Classifier: h.classifier,
		News:       h.news,
		General:    gen,
		Memory:     h.memory,
		In:         strings.NewReader("¿Qué es la fotosíntesis?\nsalir\n"),
		Interrupts: h.interrupts,
		Printer:    console.New(h.out, h.errOut),
	})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, h.memory.turns)
	assert.Empty(t, h.errOut.String())
	assert.Contains(t, h.out.String(), "Respuesta: parcial\n\nRespuesta interrumpida.\n")
	assert.Equal(t, 2, strings.Count(h.out.String(), console.Prompt))
}

func TestRun_InterruptAtPromptEndsSession(t *testing.T) {
	h := newHarness(domain.CategoryGeneral)
	h.interrupts = make(chan os.Signal, 1)
	h.interrupts <- os.Interrupt

	pr, pw := io.Pipe()
	defer pw.Close()

	s, err := New(Config{
		Classifier: h.classifier,
		News:       h.news,
		General:    h.general,
		Memory:     h.memory,
		In:         pr,
		Interrupts: h.interrupts,
		Printer:    console.New(h.out, h.errOut),
	})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, h.classifier.seen)
	assert.Equal(t, console.Prompt, h.out.String())
}
