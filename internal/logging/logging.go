package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

func New(level string, json bool) *log.Logger {
	return NewWithWriter(os.Stderr, level, json)
}

func NewWithWriter(w io.Writer, level string, json bool) *log.Logger {
	opts := log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	}
	if json {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts)
}

// Discard is used by tests and library callers that do not care about output.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
