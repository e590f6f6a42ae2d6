// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when something went
// wrong, such as a request timing out or a plan generation being slow.
package flightrecorder

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/aitrainer/internal/errors"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 << 20
	defaultCooldown = 30 * time.Minute
)

// Reasons for capturing a trace. They end up in the file name.
const (
	ReasonTimeout        = "timeout"
	ReasonSlowGeneration = "slow-generation"
)

// Service manages flight recording.
type Service struct {
	logger          *slog.Logger
	flightRecorder  *trace.FlightRecorder
	tracesDirectory string
	cooldown        time.Duration
	lastCapture     atomic.Int64 // Unix seconds of the last capture.
}

// Config configures the flight recorder service. Zero values select the defaults.
type Config struct {
	Logger          *slog.Logger
	MinAge          time.Duration
	MaxBytes        uint64
	Cooldown        time.Duration
	TracesDirectory string
}

// New creates the traces directory if needed and prepares, but does not start, the recorder.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.TracesDirectory == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.TracesDirectory, 0o700); err != nil {
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.TracesDirectory))
	}

	minAge := cmp.Or(cfg.MinAge, defaultMinAge)
	maxBytes := cmp.Or(cfg.MaxBytes, uint64(defaultMaxBytes))
	return &Service{
		logger: cfg.Logger,
		flightRecorder: trace.NewFlightRecorder(trace.FlightRecorderConfig{
			MinAge:   minAge,
			MaxBytes: maxBytes,
		}),
		tracesDirectory: cfg.TracesDirectory,
		cooldown:        cmp.Or(cfg.Cooldown, defaultCooldown),
		lastCapture:     atomic.Int64{},
	}, nil
}

// Start begins flight recording.
func (s *Service) Start(ctx context.Context) error {
	if err := s.flightRecorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("dir", s.tracesDirectory),
		slog.Duration("cooldown", s.cooldown))
	return nil
}

// Stop ends flight recording.
func (s *Service) Stop(ctx context.Context) {
	s.flightRecorder.Stop()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

var unsafeReason = regexp.MustCompile(`[^a-z0-9-]+`)

// Capture writes the recorded trace to <reason>-<timestamp>.trace. At most one trace is written per cooldown
// period regardless of reason.
func (s *Service) Capture(ctx context.Context, reason string) {
	now := time.Now()
	last := s.lastCapture.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < s.cooldown {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture due to cooldown",
			slog.String("reason", reason),
			slog.Time("last_capture", time.Unix(last, 0)))
		return
	}
	if !s.lastCapture.CompareAndSwap(last, now.Unix()) {
		return
	}

	name := fmt.Sprintf("%s-%s.trace", unsafeReason.ReplaceAllString(reason, "_"), now.UTC().Format("20060102-150405"))
	path := filepath.Join(s.tracesDirectory, name)
	if err := s.writeTrace(path); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("reason", reason),
		slog.String("file", path))
}

func (s *Service) writeTrace(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	if _, err = s.flightRecorder.WriteTo(file); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
