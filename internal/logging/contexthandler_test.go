package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/aitrainer/internal/logging"
)

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	parent := logging.WithAttrs(context.Background(), slog.String("trace_id", "abc"))
	first := logging.WithAttrs(parent, slog.Int("step", 1))
	second := logging.WithAttrs(parent, slog.Int("step", 2))

	logger.InfoContext(first, "first")
	logger.InfoContext(second, "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "trace_id=abc step=1") {
		t.Errorf("first line %q misses context attributes", lines[0])
	}
	if !strings.Contains(lines[1], "trace_id=abc step=2") || strings.Contains(lines[1], "step=1") {
		t.Errorf("second line %q has wrong context attributes", lines[1])
	}
	if got := logging.Attrs(context.Background()); got != nil {
		t.Errorf("Attrs(empty) = %v, want nil", got)
	}
}
