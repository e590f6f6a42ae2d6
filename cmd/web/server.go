package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/myrjola/aitrainer/internal/e2etest"
	"github.com/myrjola/aitrainer/internal/errors"
)

const (
	// defaultTimeout bounds reading a request and writing its response.
	defaultTimeout = 2 * time.Second
	idleTimeout    = time.Minute

	generatePattern = "POST /trainer/generate"
	// generateTimeout leaves room for a language model to write a whole plan.
	generateTimeout = 59 * time.Second
)

// handlerTimeout is the time a request matching pattern may take before it is cut off.
func handlerTimeout(pattern string) time.Duration {
	if pattern == generatePattern {
		return generateTimeout
	}
	return defaultTimeout - (200 * time.Millisecond) //nolint:mnd // writing the response takes time.
}

// routeDeadlines pushes the connection write deadline past the handler timeout of routes that outlast the server
// WriteTimeout. The route is resolved before the mux runs the handler so that the deadline is in place before
// anything is written.
func (app *application) routeDeadlines(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if timeout := handlerTimeout(pattern); timeout > defaultTimeout {
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(time.Now().Add(timeout + time.Second)); err != nil {
				app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to extend write deadline",
					slog.String("pattern", pattern), errors.SlogError(err))
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// serve listens on addr until ctx is done and then gives in-flight requests defaultTimeout to finish. Generations
// cut off by the shutdown still complete in the plan service.
func (app *application) serve(ctx context.Context, addr string, mux *http.ServeMux) error {
	srv := &http.Server{ //nolint:exhaustruct // zero values are the defaults.
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routeDeadlines(mux),
		IdleTimeout:       idleTimeout,
		ReadTimeout:       defaultTimeout,
		WriteTimeout:      defaultTimeout,
		ReadHeaderTimeout: time.Second,
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listen", slog.String("addr", addr))
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String(e2etest.LogAddrKey, listener.Addr().String()))

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(listener)
	}()
	select {
	case err = <-served:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
