// Package console renders the line-oriented terminal output of the
// question loop.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Prompt is written before every question is read.
const Prompt = "Tu pregunta: "

// Printer writes styled lines. Styles degrade to plain text when the
// writer is not a terminal.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	headerStyle lipgloss.Style
	hintStyle   lipgloss.Style
	statusStyle lipgloss.Style
	labelStyle  lipgloss.Style
	errorStyle  lipgloss.Style
}

// New creates a printer. Errors go to errOut; a nil errOut shares out.
func New(out, errOut io.Writer) *Printer {
	if errOut == nil {
		errOut = out
	}
	r := lipgloss.NewRenderer(out)
	er := lipgloss.NewRenderer(errOut)
	return &Printer{
		out:         out,
		errOut:      errOut,
		headerStyle: r.NewStyle().Bold(true),
		hintStyle:   r.NewStyle().Foreground(lipgloss.Color("8")),
		statusStyle: r.NewStyle().Foreground(lipgloss.Color("10")),
		labelStyle:  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		errorStyle:  er.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Banner prints the header shown once the index is ready.
func (p *Printer) Banner(title, hint string) {
	fmt.Fprintf(p.out, "\n%s\n%s\n\n", p.headerStyle.Render(title), p.hintStyle.Render(hint))
}

// Status prints a progress line.
func (p *Printer) Status(format string, args ...any) {
	fmt.Fprintln(p.out, p.statusStyle.Render(fmt.Sprintf(format, args...)))
}

// SourceLoaded reports how many articles one source produced.
func (p *Printer) SourceLoaded(source string, n int) {
	p.Status("Cargadas %d noticias de %s", n, source)
}

// IndexReady reports the size of the built index.
func (p *Printer) IndexReady(documents int) {
	p.Status("Vector store creado con %d noticias", documents)
}

// Interrupted reports an answer cut short by the user.
func (p *Printer) Interrupted() {
	p.Status("Respuesta interrumpida.")
}

// Prompt asks for the next question without a trailing newline.
func (p *Printer) Prompt() {
	fmt.Fprint(p.out, Prompt)
}

// AnswerStart prints the label that precedes a streamed answer.
func (p *Printer) AnswerStart() {
	fmt.Fprint(p.out, p.labelStyle.Render("Respuesta:")+" ")
}

// Fragment writes one piece of a streamed answer as-is.
func (p *Printer) Fragment(s string) {
	fmt.Fprint(p.out, s)
}

// AnswerEnd terminates a streamed answer.
func (p *Printer) AnswerEnd() {
	fmt.Fprint(p.out, "\n\n")
}

// TurnError reports a failed turn.
func (p *Printer) TurnError(err error) {
	fmt.Fprintln(p.errOut, p.errorStyle.Render("Error al procesar la pregunta: "+err.Error()))
}

// Fatal reports a startup failure.
func (p *Printer) Fatal(err error) {
	fmt.Fprintln(p.errOut, p.errorStyle.Render("Error: "+err.Error()))
}
