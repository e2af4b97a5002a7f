package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewConsoleWriter formats log entries for an interactive terminal instead of
// the default JSON output. cmd/fsdrive installs it for every mode it runs in.
func NewConsoleWriter(output io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
}
