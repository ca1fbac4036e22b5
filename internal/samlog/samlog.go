// Package samlog provides the structured logger shared across the client.
//
// It replaces the original Dire Wolf idiom of a global text_color_set/dw_printf
// pair with a single charmbracelet/log logger instance threaded through the
// call chain, carrying structured key-value fields instead of ad hoc colored
// text.
package samlog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger used throughout the client.
type Logger = log.Logger

// New builds a Logger writing to w at the given level. An empty or unknown
// level string defaults to Info.
func New(w io.Writer, level string) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})
	l.SetLevel(parseLevel(level))

	return l
}

// Default builds a Logger writing to stderr at Info level, for callers (tests,
// small tools) that don't need a configured level.
func Default() *Logger {
	return New(os.Stderr, "info")
}

func parseLevel(level string) log.Level {
	switch level {
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
