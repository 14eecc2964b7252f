// Package logger builds the zerolog logger shared by wikirag components.
// Output goes to stderr through a console writer so it never mixes with
// answers printed on stdout.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// DefaultLevel keeps the interactive console quiet unless something is wrong.
const DefaultLevel = "warn"

// New returns a console logger at the given level. Unknown levels fall back
// to DefaultLevel. A nil writer means stderr.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl, _ = zerolog.ParseLevel(DefaultLevel)
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Verbose returns a debug-level logger, used by the --verbose flag.
func Verbose(w io.Writer) zerolog.Logger {
	return New(zerolog.DebugLevel.String(), w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
