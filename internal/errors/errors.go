// Package errors extends the standard library errors with slog annotations and the source location where an error
// was first wrapped.
//
// Use [Wrap] instead of fmt.Errorf when the error crosses a package boundary so that [SlogError] can log the
// annotations as structured attributes.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// Is, As, Unwrap and Join are re-exported so that callers only need to import this package.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	Join   = stderrors.Join
)

type sentinel struct {
	msg string
}

func (s *sentinel) Error() string {
	return s.msg
}

// NewSentinel creates a comparable error without a source location. Use it for package level error values.
func NewSentinel(msg string) error {
	return &sentinel{msg: msg}
}

type annotated struct {
	cause error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (a *annotated) Error() string {
	if a.cause == nil {
		return a.msg
	}
	return a.msg + ": " + a.cause.Error()
}

func (a *annotated) Unwrap() error {
	return a.cause
}

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	// skip runtime.Callers, callerPC and the exported constructor.
	if runtime.Callers(skip+3, pcs[:]) == 0 { //nolint:mnd // see above.
		return 0
	}
	return pcs[0]
}

// New creates an error annotated with the caller's location and the given attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotated{cause: nil, msg: msg, attrs: attrs, pc: callerPC(0)}
}

// Wrap annotates err with a message, slog attributes and the caller's location. Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotated{cause: err, msg: msg, attrs: attrs, pc: callerPC(0)}
}

// DecoratePanic converts a recovered panic value into an error pointing to the line that panicked.
//
// It must be called from the deferred function that recovered the value. Returns nil if excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	msg := fmt.Sprintf("panic: %v", excp)
	if err, ok := excp.(error); ok {
		return &annotated{cause: err, msg: "panic", attrs: nil, pc: panicPC()}
	}
	return &annotated{cause: nil, msg: msg, attrs: nil, pc: panicPC()}
}

// panicPC finds the frame right above runtime.gopanic.
func panicPC() uintptr {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic {
			return frame.PC
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return 0
		}
	}
}

// SlogError turns err into a slog group holding the message, the collected annotations and the source location of
// the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Group("error")
	}

	var (
		annotations []any
		pc          uintptr
	)
	walk(err, func(a *annotated) {
		for _, attr := range a.attrs {
			annotations = append(annotations, attr)
		}
		if a.pc != 0 {
			pc = a.pc
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source := sourceOf(pc); source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the tree from the outermost to the innermost.
func walk(err error, visit func(*annotated)) {
	for err != nil {
		if a, ok := err.(*annotated); ok { //nolint:errorlint // walking the chain manually.
			visit(a)
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e, visit)
			}
			return
		}
		err = stderrors.Unwrap(err)
	}
}

func sourceOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	file := frame.File
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}
	return file + ":" + strconv.Itoa(frame.Line)
}
