// Package logging builds the zerolog logger used by the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level. format "console"
// gives human-readable lines, colored when w is a terminal; "json" gives one
// JSON object per line. A nil w means standard error.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	switch format {
	case "console", "":
		noColor := true
		if w == nil {
			w = colorable.NewColorableStderr()
			noColor = !isTerminal(os.Stderr)
		}
		out = zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.TimeOnly}
	case "json":
		if w == nil {
			w = os.Stderr
		}
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
