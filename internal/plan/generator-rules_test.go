package plan_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/trainer"
)

func TestRuleGenerator_Generate(t *testing.T) {
	t.Parallel()
	sub := submission(t)

	d, err := plan.RuleGenerator{}.Generate(t.Context(), sub)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err = d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, fragment := range []string{"**23.1** (normal)", "**2340 kcal**"} {
		if !strings.Contains(d.Summary, fragment) {
			t.Errorf("summary does not contain %q:\n%s", fragment, d.Summary)
		}
	}
	if !strings.Contains(d.Workout, "between **124** and **143** bpm") {
		t.Errorf("workout lacks heart rate zone:\n%s", d.Workout)
	}
	if got := strings.Count(d.Workout, "- **Day "); got != sub.Health.Frequency {
		t.Errorf("got %d training days, want %d", got, sub.Health.Frequency)
	}

	again, err := plan.RuleGenerator{}.Generate(t.Context(), sub)
	if err != nil || again != d {
		t.Errorf("generation is not deterministic")
	}
}

func TestRuleGenerator_respectsProfile(t *testing.T) {
	t.Parallel()
	sub := submission(t)
	sub.Health.Frequency = 5
	sub.Health.Injuries = []trainer.Injury{{Part: trainer.BodyPartLeftLeg, Description: "torn ligament"}}
	sub.Health.Restrictions = []trainer.Restriction{trainer.RestrictionVegetarian, trainer.RestrictionGlutenFree}
	sub.Health.CustomRestrictions = []string{"无糖"}
	sub.Preferences.DislikedExercises = []trainer.Exercise{trainer.ExerciseYoga, trainer.ExerciseDancing}
	sub.Preferences.CustomBlacklist = []string{"durian"}

	d, err := plan.RuleGenerator{}.Generate(t.Context(), sub)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, excluded := range []string{"running", "basketball", "yoga", "dancing", "weightlifting", "swimming"} {
		if strings.Contains(d.Workout, ": "+excluded+" for") {
			t.Errorf("workout schedules %s:\n%s", excluded, d.Workout)
		}
	}
	for _, fragment := range []string{"cycling", "boxing", "left-leg: torn ligament"} {
		if !strings.Contains(d.Workout, fragment) {
			t.Errorf("workout does not contain %q:\n%s", fragment, d.Workout)
		}
	}
	for _, fragment := range []string{"tofu", "rice", "无糖", "durian"} {
		if !strings.Contains(d.Diet, fragment) {
			t.Errorf("diet does not contain %q:\n%s", fragment, d.Diet)
		}
	}
}

func TestRuleGenerator_cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := (plan.RuleGenerator{}).Generate(ctx, submission(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}
