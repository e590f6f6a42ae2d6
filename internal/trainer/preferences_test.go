package trainer_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/aitrainer/internal/trainer"
)

func TestPreferenceDraft_MoveTaste(t *testing.T) {
	d := trainer.NewPreferenceDraft(nil)
	if !d.MoveTaste(2, -2) {
		t.Fatal("MoveTaste(2, -2) = false")
	}
	want := []trainer.Taste{trainer.TasteSpicy, trainer.TasteSweet, trainer.TasteSalty, trainer.TasteSour, trainer.TasteBitter}
	if diff := cmp.Diff(want, d.Record().Tastes); diff != "" {
		t.Errorf("Tastes mismatch (-want +got):\n%s", diff)
	}
	if d.MoveTaste(0, -1) || d.MoveTaste(4, 1) || d.MoveTaste(9, -1) {
		t.Error("MoveTaste() past the ends = true, want false")
	}
	if diff := cmp.Diff(want, d.Record().Tastes); diff != "" {
		t.Errorf("ignored moves changed the ranking (-want +got):\n%s", diff)
	}
	if err := d.SetTastes(want[:3]); err == nil {
		t.Error("SetTastes() with a partial ranking succeeded")
	}
}

func TestPreferenceDraft_customIngredientsStayLocal(t *testing.T) {
	catalog := slices.Clone(trainer.Ingredients.Values)

	first := trainer.NewPreferenceDraft(nil)
	first.AddCustomIngredient("香菜根")
	second := trainer.NewPreferenceDraft(nil)

	if got := second.Record().CustomBlacklist; len(got) != 0 {
		t.Errorf("second session sees custom ingredients %v", got)
	}
	if diff := cmp.Diff(catalog, trainer.Ingredients.Values); diff != "" {
		t.Errorf("ingredient catalog changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"香菜根"}, first.Record().CustomBlacklist); diff != "" {
		t.Errorf("CustomBlacklist mismatch (-want +got):\n%s", diff)
	}
	first.RemoveCustomIngredient("香菜根")
	if got := first.Record().CustomBlacklist; len(got) != 0 {
		t.Errorf("CustomBlacklist = %v after removal", got)
	}
}

func TestPreferenceDraft_periodsAndStyle(t *testing.T) {
	d := trainer.NewPreferenceDraft(nil)
	rec := d.Record()
	if rec.ExercisePeriod != 3 || rec.DietPeriod != 3 || rec.Style != trainer.PlanStyleAI {
		t.Fatalf("defaults = %d %d %s", rec.ExercisePeriod, rec.DietPeriod, rec.Style)
	}
	d.SetExercisePeriod(0)
	d.SetDietPeriod(24)
	if err := d.SetStyle("chaotic"); err == nil {
		t.Error("SetStyle(chaotic) succeeded")
	}
	rec = d.Record()
	if rec.ExercisePeriod != 1 || rec.DietPeriod != 12 || rec.Style != trainer.PlanStyleAI {
		t.Errorf("got %d %d %s, want 1 12 ai", rec.ExercisePeriod, rec.DietPeriod, rec.Style)
	}
}

func TestPreferences_Validate(t *testing.T) {
	p := trainer.DefaultPreferences()
	p.Tastes = append(p.Tastes, trainer.TasteSweet)
	p.Equipment = []trainer.Equipment{"rowing-machine"}
	fields := trainer.FieldErrors(p.Validate())
	for _, field := range []string{"tastes", "equipment"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("FieldErrors() = %v, want %s", fields, field)
		}
	}
}

func TestSyncToggles(t *testing.T) {
	d := trainer.NewPreferenceDraft(nil)
	if err := trainer.SyncToggles(nil, []trainer.Equipment{trainer.EquipmentYogaMat, trainer.EquipmentDumbbell},
		d.ToggleEquipment); err != nil {
		t.Fatalf("SyncToggles() error = %v", err)
	}
	current := d.Record().Equipment
	want := []trainer.Equipment{trainer.EquipmentDumbbell, trainer.EquipmentJumpRope}
	if err := trainer.SyncToggles(current, want, d.ToggleEquipment); err != nil {
		t.Fatalf("SyncToggles() error = %v", err)
	}
	if diff := cmp.Diff(want, d.Record().Equipment); diff != "" {
		t.Errorf("Equipment mismatch (-want +got):\n%s", diff)
	}

	err := trainer.SyncToggles(nil, []trainer.Equipment{"hoverboard"}, d.ToggleEquipment)
	if got := trainer.FieldErrors(err); got["equipment"] == "" {
		t.Errorf("FieldErrors() = %v, want an equipment error", got)
	}
}
