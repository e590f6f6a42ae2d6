// Package plan turns a completed wizard submission into a training and diet plan and keeps the generated plans.
package plan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/trainer"
)

var (
	// ErrNotFound is returned when a plan does not exist or belongs to someone else.
	ErrNotFound = errors.NewSentinel("plan not found")
	// ErrEmptyDraft is returned by generators that produced a plan with a blank section.
	ErrEmptyDraft = errors.NewSentinel("generated plan has an empty section")
)

// Draft is the generator output. Every section is markdown.
type Draft struct {
	Summary string `json:"summary"`
	Workout string `json:"workout"`
	Diet    string `json:"diet"`
}

// Validate reports ErrEmptyDraft when a section is blank.
func (d Draft) Validate() error {
	sections := []struct{ name, text string }{{"summary", d.Summary}, {"workout", d.Workout}, {"diet", d.Diet}}
	for _, section := range sections {
		if strings.TrimSpace(section.text) == "" {
			return errors.Wrap(ErrEmptyDraft, "validate draft", slog.String("section", section.name))
		}
	}
	return nil
}

// Generator produces a Draft from a complete submission. Name identifies the generator in stored plans.
type Generator interface {
	trainer.Generator[Draft]
	Name() string
}

// Owner identifies who may see a plan. Key is a random value kept in the session so that visitors without an
// account can find their plans. UserID is 0 for anonymous visitors.
type Owner struct {
	UserID int
	Key    string
}

// Plan is a stored generation result.
type Plan struct {
	ID         uuid.UUID
	Owner      Owner
	Generator  string
	Submission trainer.Submission
	Draft
	CreatedAt time.Time
}

// owns reports whether o may see p.
func (o Owner) owns(p Plan) bool {
	if p.Owner.UserID != 0 {
		return o.UserID == p.Owner.UserID
	}
	return o.Key != "" && o.Key == p.Owner.Key
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc struct {
	Label string
	Fn    func(ctx context.Context, s trainer.Submission) (Draft, error)
}

func (f GeneratorFunc) Name() string {
	return f.Label
}

func (f GeneratorFunc) Generate(ctx context.Context, s trainer.Submission) (Draft, error) {
	return f.Fn(ctx, s)
}
