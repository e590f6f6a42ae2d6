package e2etest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3" // driver for the plan queries.
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/logging"
)

// LogAddrKey is the log attribute carrying the address the server listens on.
const LogAddrKey = "addr"

// LogDsnKey is the log attribute carrying the read-write SQLite DSN.
const LogDsnKey = "sqlDsn"

// Server is the web application running in-process for a single test.
type Server struct {
	url    string
	client *Client
	db     *sql.DB
	stop   context.CancelCauseFunc
	done   chan struct{}
}

// RunFunc has the signature of the web command's run function.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// startup collects the values the server logs while it boots. Only the first of each is kept.
type startup struct {
	addr chan string
	dsn  chan string
}

func (s startup) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	var ch chan string
	switch a.Key {
	case LogAddrKey:
		ch = s.addr
	case LogDsnKey:
		ch = s.dsn
	default:
		return a
	}
	select {
	case ch <- a.Value.String():
	default:
	}
	return a
}

// StartServer runs the application with lookupEnv as its environment and returns once it answers /api/healthy.
// Logs go to logSink, usually testhelpers.NewWriter. The server is shut down when the test finishes.
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	ctx, stop := context.WithCancelCause(t.Context())
	boot := startup{addr: make(chan string, 1), dsn: make(chan string, 1)}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: boot.replaceAttr,
	})))

	s := &Server{url: "", client: nil, db: nil, stop: stop, done: make(chan struct{})}
	t.Cleanup(s.Shutdown)
	go func() {
		defer close(s.done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			stop(err)
		}
	}()

	var addr, dsn string
	for addr == "" || dsn == "" {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(context.Cause(ctx), "server exited during startup")
		case addr = <-boot.addr:
		case dsn = <-boot.dsn:
		}
	}

	var err error
	s.url = "http://" + addr
	if s.client, err = NewClient(s.url, "localhost", "http://localhost:0"); err != nil {
		return nil, errors.Wrap(err, "new client")
	}
	if err = s.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, errors.Wrap(err, "wait for ready")
	}
	if s.db, err = sql.Open("sqlite3", dsn); err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("dsn", dsn))
	}
	return s, nil
}

// Client is signed out until it registers or logs in.
func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}

// StoredPlan is the ownership of a plan row as the database sees it.
type StoredPlan struct {
	Generator string
	// UserID is zero while the plan belongs to an anonymous session.
	UserID int64
}

// Plan looks up the plan with id behind the application's back.
func (s *Server) Plan(ctx context.Context, id string) (StoredPlan, error) {
	var (
		p      StoredPlan
		userID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, "SELECT generator, user_id FROM plans WHERE id = ?", id).
		Scan(&p.Generator, &userID)
	if err != nil {
		return p, errors.Wrap(err, "query plan", slog.String("id", id))
	}
	p.UserID = userID.Int64
	return p, nil
}

// Shutdown stops the server and waits for run to return. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.stop(nil)
	<-s.done
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
