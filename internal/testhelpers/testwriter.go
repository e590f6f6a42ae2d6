package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer forwards writes to t.Log so that logs only show up for failing tests.
type Writer struct {
	t    testing.TB
	done atomic.Bool
}

// NewWriter returns a Writer bound to t. Writing after t has finished panics, which surfaces servers that outlive
// their test.
func NewWriter(t testing.TB) io.Writer {
	w := &Writer{t: t}
	t.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is the server shut down in t.Cleanup?")
	}
	if line := strings.TrimSuffix(string(p), "\n"); line != "" {
		w.t.Log(line)
	}
	return len(p), nil
}
