package trainer_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/aitrainer/internal/trainer"
)

func TestNewReview(t *testing.T) {
	w := trainer.NewWizard()
	if err := w.SubmitBasicInfo(scenarioBasic()); err != nil {
		t.Fatalf("SubmitBasicInfo() error = %v", err)
	}
	health := trainer.NewHealthDraft(*w.Basic(), nil)
	_ = health.ToggleRestriction(trainer.RestrictionHalal)
	health.AddCustomRestriction("无糖")
	if err := health.Submit(w); err != nil {
		t.Fatalf("submit health: %v", err)
	}
	prefs := trainer.NewPreferenceDraft(nil)
	_ = prefs.ToggleIngredient(trainer.IngredientCelery)
	prefs.AddCustomIngredient("okra")
	if err := prefs.Submit(w); err != nil {
		t.Fatalf("submit preferences: %v", err)
	}
	sub, err := w.Submission()
	if err != nil {
		t.Fatalf("Submission() error = %v", err)
	}

	// Echo the keys so that the assertions do not depend on translations.
	review := trainer.NewReview(sub, func(key string) string { return key })

	if review.BMI != 23.1 || review.BMIBand != "bmi.normal" {
		t.Errorf("BMI = %v %s, want 23.1 bmi.normal", review.BMI, review.BMIBand)
	}
	var edits []trainer.Step
	for _, s := range review.Sections {
		edits = append(edits, s.Edit)
	}
	if diff := cmp.Diff([]trainer.Step{trainer.StepBasicInfo, trainer.StepHealthDetails, trainer.StepPreferences}, edits); diff != "" {
		t.Errorf("edit targets mismatch (-want +got):\n%s", diff)
	}

	restrictions := findField(t, review, "field.restrictions")
	wantRestrictions := []trainer.ReviewTag{{Label: "restriction.halal", Custom: false}, {Label: "无糖", Custom: true}}
	if diff := cmp.Diff(wantRestrictions, restrictions.Tags); diff != "" {
		t.Errorf("restriction tags mismatch (-want +got):\n%s", diff)
	}
	blacklist := findField(t, review, "field.blacklist")
	wantBlacklist := []trainer.ReviewTag{{Label: "ingredient.celery", Custom: false}, {Label: "okra", Custom: true}}
	if diff := cmp.Diff(wantBlacklist, blacklist.Tags); diff != "" {
		t.Errorf("blacklist tags mismatch (-want +got):\n%s", diff)
	}
	if got := findField(t, review, "field.maxHeartRate").Value; got != "190 bpm" {
		t.Errorf("max heart rate = %q, want 190 bpm", got)
	}
}

func findField(t *testing.T, r trainer.Review, label string) trainer.ReviewField {
	t.Helper()
	for _, s := range r.Sections {
		for _, f := range s.Fields {
			if f.Label == label {
				return f
			}
		}
	}
	t.Fatalf("review has no field %s", label)
	return trainer.ReviewField{}
}
