// Package logging builds the structured logger used for every diagnostic
// SDI4FS emits (§7's "diagnostic stream").
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New builds a *slog.Logger writing to w, leveled by levelName ("debug",
// "info", "warn", "error"; unrecognized names fall back to "info").
func New(w io.Writer, levelName string) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      parseLevel(levelName),
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}))
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default is the logger used when a caller does not supply one. It mirrors
// the corpus's bare "log" package default of writing to stderr, just with
// levels and structured fields attached.
var Default = New(os.Stderr, "info")
