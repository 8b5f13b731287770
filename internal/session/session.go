// Package session runs the interactive question loop: read a question,
// classify it, stream the routed answer and record the turn in memory.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsqa/internal/console"
	"newsqa/internal/domain"
	"newsqa/internal/logging"
)

// ExitWord ends the loop when typed on its own, ignoring case and
// surrounding whitespace.
const ExitWord = "salir"

// Config holds the collaborators of a Session.
type Config struct {
	Classifier domain.Classifier
	News       domain.Generator
	General    domain.Generator
	Memory     domain.Memory
	In         io.Reader
	// Interrupts cancels the answer being streamed; at the prompt it ends
	// the session. Nil disables interrupt handling.
	Interrupts <-chan os.Signal
	Printer    *console.Printer
	Logger     *zap.Logger
}

// Session is one interactive conversation.
type Session struct {
	classifier domain.Classifier
	news       domain.Generator
	general    domain.Generator
	memory     domain.Memory
	in         *bufio.Reader
	interrupts <-chan os.Signal
	printer    *console.Printer
	logger     *zap.Logger
	id         string
}

// New validates cfg and creates a session with a fresh id.
func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Classifier == nil:
		return nil, errors.New("session: classifier required")
	case cfg.News == nil || cfg.General == nil:
		return nil, errors.New("session: both generators required")
	case cfg.Memory == nil:
		return nil, errors.New("session: memory required")
	case cfg.In == nil || cfg.Printer == nil:
		return nil, errors.New("session: input and printer required")
	}
	id := uuid.NewString()
	return &Session{
		classifier: cfg.Classifier,
		news:       cfg.News,
		general:    cfg.General,
		memory:     cfg.Memory,
		in:         bufio.NewReader(cfg.In),
		interrupts: cfg.Interrupts,
		printer:    cfg.Printer,
		logger:     logging.OrNop(cfg.Logger).With(zap.String("session_id", id)),
		id:         id,
	}, nil
}

// ID returns the session identifier attached to every log line.
func (s *Session) ID() string { return s.id }

type line struct {
	text string
	err  error
}

// Run reads questions until the exit word, end of input, an interrupt at
// the prompt or ctx cancellation. Failed turns are reported and the loop
// continues; only an input read failure is returned.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started")
	defer s.logger.Info("session finished")

	done := make(chan struct{})
	defer close(done)
	lines := s.readLines(done)

	for {
		if ctx.Err() != nil {
			return nil
		}
		s.printer.Prompt()

		var next line
		select {
		case <-ctx.Done():
			return nil
		case <-s.interrupts:
			s.logger.Info("interrupted at prompt")
			return nil
		case next = <-lines:
		}
		if next.err != nil && !errors.Is(next.err, io.EOF) {
			return fmt.Errorf("reading question: %w", next.err)
		}
		eof := errors.Is(next.err, io.EOF)

		question := strings.TrimSpace(next.text)
		switch {
		case strings.EqualFold(question, ExitWord):
			return nil
		case question == "":
			if eof {
				return nil
			}
			continue
		}

		if err := s.interruptibleTurn(ctx, question); err != nil {
			s.logger.Warn("turn failed", zap.String("question", question), zap.Error(err))
			s.printer.TurnError(err)
		}
		if eof {
			return nil
		}
	}
}

// readLines feeds input lines to Run until a read error or done is closed.
func (s *Session) readLines(done <-chan struct{}) <-chan line {
	lines := make(chan line)
	go func() {
		for {
			text, err := s.in.ReadString('\n')
			select {
			case lines <- line{text: text, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// interruptibleTurn runs turn under a context cancelled by an interrupt.
// An interrupted turn is not an error and leaves memory untouched.
func (s *Session) interruptibleTurn(ctx context.Context, question string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupted := make(chan struct{})
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		select {
		case <-s.interrupts:
			close(interrupted)
			cancel()
		case <-turnCtx.Done():
		}
	}()

	err := s.turn(turnCtx, question)
	cancel()
	<-watching
	if err == nil {
		return nil
	}
	select {
	case <-interrupted:
		s.logger.Info("turn interrupted", zap.String("question", question))
		s.printer.Interrupted()
		return nil
	default:
		return err
	}
}

// turn runs one question. Memory is only updated once the whole answer has
// been streamed.
func (s *Session) turn(ctx context.Context, question string) error {
	s.printer.Status("Clasificando pregunta...")
	category, err := s.classifier.Classify(ctx, question)
	if err != nil {
		return err
	}
	s.printer.Status("Clasificación: %s", category)

	gen := s.general
	if category == domain.CategoryNews {
		s.printer.Status("Buscando información en noticias...")
		gen = s.news
	} else {
		s.printer.Status("Generando respuesta general...")
	}

	s.printer.AnswerStart()
	var answer strings.Builder
	for chunk, err := range gen.Generate(ctx, question) {
		if err != nil {
			s.printer.AnswerEnd()
			return err
		}
		s.printer.Fragment(chunk)
		answer.WriteString(chunk)
	}
	s.printer.AnswerEnd()

	s.logger.Debug("turn answered",
		zap.String("category", string(category)),
		zap.Int("answer_chars", answer.Len()),
	)
	return s.memory.SaveContext(ctx, domain.Turn{Input: question, Output: answer.String()})
}
