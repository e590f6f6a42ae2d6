// Package trainer models the AI trainer wizard: four ordered steps collecting basic information, health details and
// preferences, followed by a review that hands the merged record to a plan generator.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/myrjola/aitrainer/internal/errors"
)

// Step is a position in the wizard, starting from 1.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepHealthDetails
	StepPreferences
	StepReview
)

// Steps lists every step in order.
var Steps = []Step{StepBasicInfo, StepHealthDetails, StepPreferences, StepReview}

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic-info"
	case StepHealthDetails:
		return "health-details"
	case StepPreferences:
		return "preferences"
	case StepReview:
		return "review"
	default:
		return "step-" + strconv.Itoa(int(s))
	}
}

// Valid reports whether s is one of the four steps.
func (s Step) Valid() bool {
	return s >= StepBasicInfo && s <= StepReview
}

// State is the serialisable snapshot of a wizard, stored in the user's session between requests.
type State struct {
	Step        Step
	Basic       *BasicInfo
	Health      *HealthDetails
	Preferences *Preferences
	// ReturnToReview is set when a step is edited from the review so that submitting it goes back to the review.
	ReturnToReview bool
	// Editing is the step opened from the review. Earlier steps reached with Back advance normally.
	Editing Step
}

// Submission is the merged record handed to a plan generator.
type Submission struct {
	Basic       BasicInfo     `json:"basic"       yaml:"basic"`
	Health      HealthDetails `json:"health"      yaml:"health"`
	Preferences Preferences   `json:"preferences" yaml:"preferences"`
}

// Generator produces a plan of type P from a complete submission.
type Generator[P any] interface {
	Generate(ctx context.Context, s Submission) (P, error)
}

// Wizard sequences the steps and owns the committed records. Navigating back or editing never clears a record, so
// going forward again shows the previously entered values.
//
// A Wizard is driven by one user action at a time. Only Generate may run concurrently with other calls.
type Wizard struct {
	state      State
	generating atomic.Bool
}

// NewWizard starts a wizard on the first step with no records.
func NewWizard() *Wizard {
	return &Wizard{state: State{Step: StepBasicInfo}} //nolint:exhaustruct // records start empty.
}

// Restore rebuilds a wizard from a snapshot. A step pointer that is out of range or ahead of the stored records is
// moved back to the furthest step that can be shown.
func Restore(s State) *Wizard {
	w := &Wizard{state: State{
		Step:           s.Step,
		Basic:          cloneOf(s.Basic, BasicInfo.clone),
		Health:         cloneOf(s.Health, HealthDetails.clone),
		Preferences:    cloneOf(s.Preferences, Preferences.clone),
		ReturnToReview: s.ReturnToReview,
		Editing:        s.Editing,
	}}
	if !w.state.Step.Valid() || !w.CanShow(w.state.Step) {
		w.state.Step = w.furthest()
	}
	return w
}

func cloneOf[T any](v *T, clone func(T) T) *T {
	if v == nil {
		return nil
	}
	c := clone(*v)
	return &c
}

// State returns a snapshot that shares no memory with the wizard.
func (w *Wizard) State() State {
	return Restore(w.state).state
}

// Step returns the active step.
func (w *Wizard) Step() Step {
	return w.state.Step
}

// Basic returns a copy of the committed basic information, or nil.
func (w *Wizard) Basic() *BasicInfo {
	return cloneOf(w.state.Basic, BasicInfo.clone)
}

// Health returns a copy of the committed health details, or nil.
func (w *Wizard) Health() *HealthDetails {
	return cloneOf(w.state.Health, HealthDetails.clone)
}

// Preferences returns a copy of the committed preferences, or nil.
func (w *Wizard) Preferences() *Preferences {
	return cloneOf(w.state.Preferences, Preferences.clone)
}

// CanShow reports whether the records of every step before s exist.
func (w *Wizard) CanShow(s Step) bool {
	switch s {
	case StepBasicInfo:
		return true
	case StepHealthDetails:
		return w.state.Basic != nil
	case StepPreferences:
		return w.state.Basic != nil && w.state.Health != nil
	case StepReview:
		return w.state.Basic != nil && w.state.Health != nil && w.state.Preferences != nil
	default:
		return false
	}
}

func (w *Wizard) furthest() Step {
	for i := len(Steps) - 1; i > 0; i-- {
		if w.CanShow(Steps[i]) {
			return Steps[i]
		}
	}
	return StepBasicInfo
}

func preconditionError(s Step) error {
	return errors.Wrap(ErrStepPrecondition, "step "+s.String(), slog.Int("step", int(s)))
}

// advance moves past the submitted step, back to the review once the step opened from there is submitted.
func (w *Wizard) advance(submitted Step) {
	if w.state.ReturnToReview && submitted >= w.state.Editing && w.CanShow(StepReview) {
		w.state.Step = StepReview
		w.state.ReturnToReview = false
		w.state.Editing = 0
		return
	}
	w.state.Step = submitted + 1
}

// SubmitBasicInfo validates and stores the first record.
func (w *Wizard) SubmitBasicInfo(b BasicInfo) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b = b.clone()
	w.state.Basic = &b
	w.advance(StepBasicInfo)
	return nil
}

// SubmitHealthDetails validates and stores the second record. The basic information must exist.
func (w *Wizard) SubmitHealthDetails(h HealthDetails) error {
	if !w.CanShow(StepHealthDetails) {
		return preconditionError(StepHealthDetails)
	}
	if err := h.Validate(); err != nil {
		return err
	}
	h = h.clone()
	w.state.Health = &h
	w.advance(StepHealthDetails)
	return nil
}

// SubmitPreferences validates and stores the third record. The earlier records must exist.
func (w *Wizard) SubmitPreferences(p Preferences) error {
	if !w.CanShow(StepPreferences) {
		return preconditionError(StepPreferences)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.clone()
	w.state.Preferences = &p
	w.advance(StepPreferences)
	return nil
}

// EditStep jumps to s without clearing anything. Leaving the review for an earlier step makes the next submit
// return to the review.
func (w *Wizard) EditStep(s Step) error {
	if !s.Valid() || !w.CanShow(s) {
		return preconditionError(s)
	}
	switch {
	case s == StepReview:
		w.state.ReturnToReview = false
		w.state.Editing = 0
	case w.state.Step == StepReview:
		w.state.ReturnToReview = true
		w.state.Editing = s
	}
	w.state.Step = s
	return nil
}

// Back moves to the previous step, stopping at the first one. The records are kept, and so is a pending return to
// the review: it happens when the step opened from the review is submitted again.
func (w *Wizard) Back() {
	if w.state.Step > StepBasicInfo {
		w.state.Step--
	}
}

// Submission returns the merged record once all three records exist.
func (w *Wizard) Submission() (Submission, error) {
	if !w.CanShow(StepReview) {
		return Submission{}, ErrIncomplete //nolint:exhaustruct // zero value on error.
	}
	return Submission{
		Basic:       w.state.Basic.clone(),
		Health:      w.state.Health.clone(),
		Preferences: w.state.Preferences.clone(),
	}, nil
}

// Generate hands the submission to g. Only one generation may run per wizard at a time and none of the records
// are touched, whatever the outcome.
func Generate[P any](ctx context.Context, w *Wizard, g Generator[P]) (P, error) {
	var zero P
	sub, err := w.Submission()
	if err != nil {
		return zero, err
	}
	if !w.generating.CompareAndSwap(false, true) {
		return zero, ErrGenerationInProgress
	}
	defer w.generating.Store(false)

	if err = ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	p, err := g.Generate(ctx, sub)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return p, nil
}
