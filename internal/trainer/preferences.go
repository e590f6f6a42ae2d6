package trainer

import (
	"slices"

	"github.com/myrjola/aitrainer/internal/errors"
)

const (
	MinPeriodMonths = 1
	MaxPeriodMonths = 12
)

// Preferences is the committed record of the third step.
type Preferences struct {
	DislikedExercises []Exercise  `json:"dislikedExercises" yaml:"dislikedExercises"`
	OtherDisliked     string      `json:"otherDisliked"     yaml:"otherDisliked"`
	Equipment         []Equipment `json:"equipment"         yaml:"equipment"`
	// Tastes ranks every taste, most preferred first.
	Tastes          []Taste      `json:"tastes"          yaml:"tastes"`
	Blacklist       []Ingredient `json:"blacklist"       yaml:"blacklist"`
	CustomBlacklist []string     `json:"customBlacklist" yaml:"customBlacklist"`
	ExercisePeriod  int          `json:"exercisePeriod"  yaml:"exercisePeriod"`
	DietPeriod      int          `json:"dietPeriod"      yaml:"dietPeriod"`
	Style           PlanStyle    `json:"style"           yaml:"style"`
}

// DefaultPreferences seeds the third step.
func DefaultPreferences() Preferences {
	return Preferences{
		DislikedExercises: nil,
		OtherDisliked:     "",
		Equipment:         nil,
		Tastes:            slices.Clone(Tastes.Values),
		Blacklist:         nil,
		CustomBlacklist:   nil,
		ExercisePeriod:    3, //nolint:mnd // a quarter.
		DietPeriod:        3, //nolint:mnd // a quarter.
		Style:             PlanStyleAI,
	}
}

func (p Preferences) clone() Preferences {
	p.DislikedExercises = slices.Clone(p.DislikedExercises)
	p.Equipment = slices.Clone(p.Equipment)
	p.Tastes = slices.Clone(p.Tastes)
	p.Blacklist = slices.Clone(p.Blacklist)
	p.CustomBlacklist = slices.Clone(p.CustomBlacklist)
	return p
}

// Validate checks the whole record.
func (p Preferences) Validate() error {
	var errs []error
	if !Exercises.ContainsAll(p.DislikedExercises) {
		errs = append(errs, invalid("dislikedExercises", "unknown exercise"))
	}
	if !EquipmentItems.ContainsAll(p.Equipment) {
		errs = append(errs, invalid("equipment", "unknown equipment"))
	}
	if !isRanking(p.Tastes) {
		errs = append(errs, invalid("tastes", "must rank every taste exactly once"))
	}
	if !Ingredients.ContainsAll(p.Blacklist) {
		errs = append(errs, invalid("blacklist", "unknown ingredient"))
	}
	if p.ExercisePeriod < MinPeriodMonths || p.ExercisePeriod > MaxPeriodMonths {
		errs = append(errs, invalid("exercisePeriod", "must be between 1 and 12 months"))
	}
	if p.DietPeriod < MinPeriodMonths || p.DietPeriod > MaxPeriodMonths {
		errs = append(errs, invalid("dietPeriod", "must be between 1 and 12 months"))
	}
	if !PlanStyles.Contains(p.Style) {
		errs = append(errs, invalid("style", "unknown plan style"))
	}
	return errors.Join(errs...)
}

func isRanking(tastes []Taste) bool {
	if len(tastes) != len(Tastes.Values) {
		return false
	}
	for _, t := range Tastes.Values {
		if !slices.Contains(tastes, t) {
			return false
		}
	}
	return true
}

// PreferenceDraft holds the uncommitted input of the third step. Custom ingredients are appended to the draft's
// own list and never to the shared ingredient catalog.
type PreferenceDraft struct {
	rec Preferences
}

// NewPreferenceDraft seeds a draft from prev or from the defaults when prev is nil.
func NewPreferenceDraft(prev *Preferences) *PreferenceDraft {
	if prev == nil {
		return &PreferenceDraft{rec: DefaultPreferences()}
	}
	return &PreferenceDraft{rec: prev.clone()}
}

// Record returns a copy of the draft.
func (d *PreferenceDraft) Record() Preferences {
	return d.rec.clone()
}

func (d *PreferenceDraft) ToggleDisliked(e Exercise) error {
	if !Exercises.Contains(e) {
		return invalid("dislikedExercises", "unknown exercise")
	}
	d.rec.DislikedExercises = Exercises.Sorted(toggle(d.rec.DislikedExercises, e))
	return nil
}

func (d *PreferenceDraft) SetOtherDisliked(s string) {
	d.rec.OtherDisliked = s
}

func (d *PreferenceDraft) ToggleEquipment(e Equipment) error {
	if !EquipmentItems.Contains(e) {
		return invalid("equipment", "unknown equipment")
	}
	d.rec.Equipment = EquipmentItems.Sorted(toggle(d.rec.Equipment, e))
	return nil
}

// SetTastes replaces the ranking. It must contain every taste exactly once.
func (d *PreferenceDraft) SetTastes(tastes []Taste) error {
	if !isRanking(tastes) {
		return invalid("tastes", "must rank every taste exactly once")
	}
	d.rec.Tastes = slices.Clone(tastes)
	return nil
}

// MoveTaste moves the taste at rank i by delta places. Moves past either end are ignored.
func (d *PreferenceDraft) MoveTaste(i, delta int) bool {
	j := i + delta
	if i < 0 || i >= len(d.rec.Tastes) || j < 0 || j >= len(d.rec.Tastes) || delta == 0 {
		return false
	}
	taste := d.rec.Tastes[i]
	d.rec.Tastes = slices.Insert(slices.Delete(d.rec.Tastes, i, i+1), j, taste)
	return true
}

func (d *PreferenceDraft) ToggleIngredient(i Ingredient) error {
	if !Ingredients.Contains(i) {
		return invalid("blacklist", "unknown ingredient")
	}
	d.rec.Blacklist = Ingredients.Sorted(toggle(d.rec.Blacklist, i))
	return nil
}

// AddCustomIngredient blacklists a free-text ingredient unless it is blank or already present.
func (d *PreferenceDraft) AddCustomIngredient(s string) bool {
	s, ok := normalizeCustom(d.rec.CustomBlacklist, s)
	if ok {
		d.rec.CustomBlacklist = append(d.rec.CustomBlacklist, s)
	}
	return ok
}

func (d *PreferenceDraft) RemoveCustomIngredient(s string) {
	d.rec.CustomBlacklist = slices.DeleteFunc(d.rec.CustomBlacklist, func(c string) bool { return c == s })
}

// SetExercisePeriod clamps months to 1..12.
func (d *PreferenceDraft) SetExercisePeriod(months int) {
	d.rec.ExercisePeriod = min(max(months, MinPeriodMonths), MaxPeriodMonths)
}

// SetDietPeriod clamps months to 1..12.
func (d *PreferenceDraft) SetDietPeriod(months int) {
	d.rec.DietPeriod = min(max(months, MinPeriodMonths), MaxPeriodMonths)
}

func (d *PreferenceDraft) SetStyle(s PlanStyle) error {
	if !PlanStyles.Contains(s) {
		return invalid("style", "unknown plan style")
	}
	d.rec.Style = s
	return nil
}

// Submit validates the draft and commits it to w.
func (d *PreferenceDraft) Submit(w *Wizard) error {
	return w.SubmitPreferences(d.Record())
}
