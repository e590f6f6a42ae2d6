package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/aitrainer/internal/logging"
)

// NewLogger creates a debug level text logger writing to logSink, usually a [Writer].
func NewLogger(logSink io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))
}
