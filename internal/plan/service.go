package plan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/trainer"
	"golang.org/x/sync/singleflight"
)

const (
	defaultGenerateTimeout = 2 * time.Minute
	defaultSlowThreshold   = 30 * time.Second
)

// Store persists plans. Repository is the sqlite implementation.
type Store interface {
	Save(ctx context.Context, p Plan) (Plan, error)
	Get(ctx context.Context, id uuid.UUID) (Plan, error)
	List(ctx context.Context, o Owner) ([]Plan, error)
	Claim(ctx context.Context, key string, userID int) (int64, error)
}

// Service generates and stores plans.
type Service struct {
	repo      Store
	generator Generator
	logger    *slog.Logger
	group     singleflight.Group

	generateTimeout time.Duration
	slowThreshold   time.Duration
	onSlow          func(ctx context.Context)
}

// ServiceOption customises NewService.
type ServiceOption func(*Service)

// WithGenerateTimeout bounds a single generation.
func WithGenerateTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.generateTimeout = d }
}

// WithSlowGenerationHook calls fn after a generation took longer than threshold, for example to capture a trace.
func WithSlowGenerationHook(threshold time.Duration, fn func(ctx context.Context)) ServiceOption {
	return func(s *Service) {
		s.slowThreshold = threshold
		s.onSlow = fn
	}
}

func NewService(repo Store, generator Generator, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		generator:       generator,
		logger:          logger,
		group:           singleflight.Group{},
		generateTimeout: defaultGenerateTimeout,
		slowThreshold:   defaultSlowThreshold,
		onSlow:          nil,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratorName names the configured generator.
func (s *Service) GeneratorName() string {
	return s.generator.Name()
}

// Generate produces a plan from the wizard and stores it for o.
//
// Concurrent calls for the same owner with the same answers share one generation. The shared generation is detached
// from the callers' cancellation and stores the plan even when every caller has stopped waiting, so a caller whose
// ctx ended first finds the plan in List later.
func (s *Service) Generate(ctx context.Context, o Owner, w *trainer.Wizard) (Plan, error) {
	if o.Key == "" {
		return Plan{}, errors.New("owner key is required")
	}
	if err := ctx.Err(); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", trainer.ErrGeneration, err)
	}
	// Validate before joining so that an incomplete wizard never shares another request's result.
	sub, err := w.Submission()
	if err != nil {
		return Plan{}, err
	}
	key, err := flightKey(o, sub)
	if err != nil {
		return Plan{}, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generateTimeout)
		defer cancel()
		return s.generate(genCtx, o, w)
	})
	select {
	case <-ctx.Done():
		return Plan{}, fmt.Errorf("%w: %w", trainer.ErrGeneration, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Plan{}, res.Err
		}
		p, _ := res.Val.(Plan)
		if res.Shared {
			s.logger.LogAttrs(ctx, slog.LevelInfo, "joined in-flight plan generation",
				slog.String("plan_id", p.ID.String()))
		}
		return p, nil
	}
}

// flightKey identifies a generation by owner and answers. Different answers from the same owner, say from two
// tabs, each get their own plan.
func flightKey(o Owner, sub trainer.Submission) (string, error) {
	answers, err := json.Marshal(sub)
	if err != nil {
		return "", errors.Wrap(err, "marshal submission")
	}
	sum := sha256.Sum256(answers)
	return o.Key + ":" + hex.EncodeToString(sum[:]), nil
}

func (s *Service) generate(ctx context.Context, o Owner, w *trainer.Wizard) (Plan, error) {
	start := time.Now()
	draft, err := trainer.Generate(ctx, w, s.generator)
	elapsed := time.Since(start)
	if elapsed > s.slowThreshold && s.onSlow != nil {
		s.onSlow(ctx)
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "plan generation failed",
			slog.String("generator", s.generator.Name()),
			slog.Duration("duration", elapsed),
			errors.SlogError(err))
		return Plan{}, err
	}

	sub, err := w.Submission()
	if err != nil {
		return Plan{}, err
	}
	p, err := s.repo.Save(ctx, Plan{ //nolint:exhaustruct // id and timestamp assigned by Save.
		Owner:      o,
		Generator:  s.generator.Name(),
		Submission: sub,
		Draft:      draft,
	})
	if err != nil {
		return Plan{}, errors.Wrap(err, "save plan")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.String("plan_id", p.ID.String()),
		slog.String("generator", p.Generator),
		slog.Duration("duration", elapsed))
	return p, nil
}

// Get returns the plan if o may see it and ErrNotFound otherwise.
func (s *Service) Get(ctx context.Context, o Owner, id uuid.UUID) (Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if !o.owns(p) {
		return Plan{}, errors.Wrap(ErrNotFound, "plan owned by someone else", slog.String("plan_id", id.String()))
	}
	return p, nil
}

// List returns the plans o may see, newest first.
func (s *Service) List(ctx context.Context, o Owner) ([]Plan, error) {
	return s.repo.List(ctx, o)
}

// Claim attaches the anonymous plans generated under key to userID, typically right after sign-in.
func (s *Service) Claim(ctx context.Context, key string, userID int) error {
	n, err := s.repo.Claim(ctx, key, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "claimed anonymous plans",
			slog.Int("user_id", userID), slog.Int64("count", n))
	}
	return nil
}
