// Package logging holds the slog attribute keys shared by docstore packages
// and builds the CLI handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Common log attribute keys.
const (
	KeyTable     = "table"
	KeyOperation = "operation"
	KeyCount     = "count"
	KeyDuration  = "duration"
	KeyError     = "error"
	KeyDialect   = "dialect"
)

// Table returns a slog attribute for the table name.
func Table(name string) slog.Attr {
	return slog.String(KeyTable, name)
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Count returns a slog attribute for a record count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group, which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group(KeyError)
	}
	return slog.String(KeyError, err.Error())
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger returns a tint logger writing to w. Output is colored only when
// w is a terminal.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return newLogger(colorable.NewColorable(f), level, false)
	}
	return newLogger(w, level, true)
}

func newLogger(w io.Writer, level slog.Leveler, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}
