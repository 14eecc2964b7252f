// Package menu is the numbered console dialogue and the question loop.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"wikirag/internal/domain"
)

const banner = `
=== Wikipedia RAG QA ===
1. Fetch Wikipedia article and save to file
2. Embed text from saved file
3. Ask questions (QA)
4. Exit`

// Menu runs the console dialogue over an input and an output stream.
type Menu struct {
	svc         Service
	in          *bufio.Scanner
	out         io.Writer
	log         zerolog.Logger
	showSources bool
}

// Option configures a Menu.
type Option func(*Menu)

// WithSources prints retrieved passages after each answer.
func WithSources(show bool) Option {
	return func(m *Menu) { m.showSources = show }
}

func New(svc Service, in io.Reader, out io.Writer, log zerolog.Logger, opts ...Option) *Menu {
	m := &Menu{svc: svc, in: bufio.NewScanner(in), out: out, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run shows the menu until the user picks exit, input ends or ctx is done.
// Operation failures are printed and the menu continues.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(m.out, banner)
		choice, ok := m.prompt("Enter your choice (1/2/3/4): ")
		if !ok {
			return nil
		}
		switch choice {
		case "1":
			m.fetch(ctx)
		case "2":
			m.index(ctx)
		case "3":
			m.ask(ctx)
		case "4":
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice. Try again.")
		}
	}
}

func (m *Menu) fetch(ctx context.Context) {
	topic, ok := m.prompt("Enter the Wikipedia topic to search: ")
	if !ok {
		return
	}
	rep, err := m.svc.FetchArticle(ctx, topic)
	if err != nil {
		m.fail("fetch", err)
		return
	}
	fmt.Fprintf(m.out, "Wikipedia content saved to %s\n", rep.Path)
}

func (m *Menu) index(ctx context.Context) {
	name, ok := m.prompt("Enter filename (e.g., india.txt): ")
	if !ok {
		return
	}
	rep, err := m.svc.BuildIndex(ctx, name)
	if err != nil {
		m.fail("index", err)
		return
	}
	fmt.Fprintf(m.out, "Vector store saved successfully to %s (%d chunks)\n", rep.Dir, rep.Chunks)
}

func (m *Menu) ask(ctx context.Context) {
	fmt.Fprintln(m.out, "Loading vector store and model for QA...")
	asker, err := m.svc.OpenAsker(ctx)
	if err != nil {
		m.fail("ask", err)
		return
	}
	defer asker.Close()
	if err := askLoop(ctx, asker, m.in, m.out, m.showSources, m.log); err != nil {
		m.fail("ask", err)
	}
}

func (m *Menu) fail(op string, err error) {
	m.log.Debug().Err(err).Str("op", op).Msg("operation failed")
	fmt.Fprintln(m.out, Describe(err))
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		fmt.Fprintln(m.out)
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// AskLoop reads questions from r until "exit" or end of input and prints
// each answer to w. A failed question is reported and the loop continues.
func AskLoop(ctx context.Context, asker Asker, r io.Reader, w io.Writer, showSources bool, log zerolog.Logger) error {
	return askLoop(ctx, asker, bufio.NewScanner(r), w, showSources, log)
}

func askLoop(ctx context.Context, asker Asker, in *bufio.Scanner, w io.Writer, showSources bool, log zerolog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(w, "\nEnter your question based on the Wikipedia document (or type 'exit' to quit): ")
		if !in.Scan() {
			fmt.Fprintln(w)
			return in.Err()
		}
		question := strings.TrimSpace(in.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") {
			return nil
		}
		ans, err := asker.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug().Err(err).Str("question", question).Msg("question failed")
			fmt.Fprintln(w, Describe(err))
			continue
		}
		PrintAnswer(w, ans, showSources)
	}
}

// PrintAnswer writes an answer and, when asked, the passages it came from.
func PrintAnswer(w io.Writer, ans domain.Answer, showSources bool) {
	fmt.Fprintf(w, "\nAnswer:\n %s\n", ans.Text)
	if !showSources {
		return
	}
	for i, src := range ans.Sources {
		fmt.Fprintf(w, "\n[%d] %s (score %.3f)\n%s\n", i+1, src.Chunk.ChunkID, src.Score, src.Chunk.Text)
	}
}
