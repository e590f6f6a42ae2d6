package main

import (
	"context"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/aitrainer/internal/envstruct"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/flightrecorder"
	"github.com/myrjola/aitrainer/internal/logging"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/sqlite"
	"github.com/myrjola/aitrainer/internal/trainer"
	"github.com/myrjola/aitrainer/internal/webauthnhandler"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	planService     *plan.Service
	flightRecorder  *flightrecorder.Service
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"AITRAINER_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"AITRAINER_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"AITRAINER_SQLITE_URL" envDefault:"./aitrainer.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"AITRAINER_TEMPLATE_PATH" envDefault:""`
	// TracesDirectory receives flight recorder traces. Empty means a directory under os.TempDir.
	TracesDirectory string `env:"AITRAINER_TRACES_DIRECTORY" envDefault:""`
	// OpenAIAPIKey selects the OpenAI generator. Without it plans come from the offline rule generator.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"            envDefault:""`
	OpenAIModel   string `env:"AITRAINER_OPENAI_MODEL"    envDefault:"gpt-4o-2024-08-06"`
	OpenAIBaseURL string `env:"AITRAINER_OPENAI_BASE_URL" envDefault:""`
}

//nolint:gochecknoglobals // gob.Register panics on conflicting registrations when run is called repeatedly in tests.
var registerSessionTypes = sync.OnceFunc(func() {
	gob.Register(trainer.State{}) //nolint:exhaustruct // only need to register the struct.
})

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	registerSessionTypes()

	var htmlTemplatePath string
	if htmlTemplatePath, err = uiDir("templates", cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	recorder, err := flightrecorder.New(flightrecorder.Config{ //nolint:exhaustruct // defaults are fine.
		Logger:          logger,
		TracesDirectory: resolveTracesDirectory(cfg.TracesDirectory),
	})
	if err != nil {
		return errors.Wrap(err, "new flight recorder")
	}
	// Only one flight recorder may run per process.
	if err = recorder.Start(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "running without flight recorder", errors.SlogError(err))
		recorder = nil
	} else {
		defer recorder.Stop(context.WithoutCancel(ctx))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager := initializeSessionManager(db)

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(cfg.Addr, cfg.FQDN, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	var app application
	generator := plan.NewGenerator(plan.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	logger.LogAttrs(ctx, slog.LevelInfo, "selected plan generator", slog.String("generator", generator.Name()))
	planService := plan.NewService(plan.NewRepository(db, logger), generator, logger,
		plan.WithSlowGenerationHook(slowGenerationThreshold, func(ctx context.Context) {
			app.captureTrace(ctx, flightrecorder.ReasonSlowGeneration)
		}))

	app = application{
		logger:          logger,
		webAuthnHandler: webAuthnHandler,
		sessionManager:  sessionManager,
		templateFS:      os.DirFS(htmlTemplatePath),
		planService:     planService,
		flightRecorder:  recorder,
	}

	var mux *http.ServeMux
	if mux, err = app.routes(); err != nil {
		return errors.Wrap(err, "routes")
	}
	if err = app.serve(ctx, cfg.Addr, mux); err != nil {
		return errors.Wrap(err, "serve")
	}
	return nil
}

const slowGenerationThreshold = 30 * time.Second

func resolveTracesDirectory(dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "aitrainer-traces")
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
