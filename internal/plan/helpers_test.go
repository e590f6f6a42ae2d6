package plan_test

import (
	"testing"

	"github.com/myrjola/aitrainer/internal/trainer"
)

func scenarioBasic() trainer.BasicInfo {
	return trainer.BasicInfo{
		Gender:    trainer.GenderMale,
		Age:       30,
		Height:    180,
		Weight:    75,
		Units:     trainer.UnitsMetric,
		Goal:      trainer.GoalShaping,
		Intensity: trainer.IntensityBalanced,
		BodyFat:   nil,
	}
}

func completeWizard(t *testing.T) *trainer.Wizard {
	t.Helper()
	w := trainer.NewWizard()
	if err := w.SubmitBasicInfo(scenarioBasic()); err != nil {
		t.Fatalf("SubmitBasicInfo() error = %v", err)
	}
	if err := trainer.NewHealthDraft(*w.Basic(), nil).Submit(w); err != nil {
		t.Fatalf("submit health details: %v", err)
	}
	if err := trainer.NewPreferenceDraft(nil).Submit(w); err != nil {
		t.Fatalf("submit preferences: %v", err)
	}
	return w
}

func submission(t *testing.T) trainer.Submission {
	t.Helper()
	sub, err := completeWizard(t).Submission()
	if err != nil {
		t.Fatalf("Submission() error = %v", err)
	}
	return sub
}
