package trainer

import (
	"slices"
	"strings"

	"github.com/myrjola/aitrainer/internal/errors"
)

// Catalog is a closed set of tag values. The order of Values is the display order.
type Catalog[T ~string] struct {
	// Prefix namespaces the translation keys of the values.
	Prefix string
	Values []T
}

// Contains reports whether v belongs to the catalog.
func (c Catalog[T]) Contains(v T) bool {
	return slices.Contains(c.Values, v)
}

// LabelKey returns the translation key for v, e.g. "bodypart.left-arm".
func (c Catalog[T]) LabelKey(v T) string {
	return c.Prefix + "." + string(v)
}

// ContainsAll reports whether every value in vs belongs to the catalog.
func (c Catalog[T]) ContainsAll(vs []T) bool {
	for _, v := range vs {
		if !c.Contains(v) {
			return false
		}
	}
	return true
}

// Sorted returns the selected values in catalog order without duplicates.
func (c Catalog[T]) Sorted(selected []T) []T {
	out := make([]T, 0, len(selected))
	for _, v := range c.Values {
		if slices.Contains(selected, v) {
			out = append(out, v)
		}
	}
	return out
}

type (
	Gender      string
	Units       string
	Goal        string
	Intensity   string
	Condition   string
	BodyPart    string
	Restriction string
	Cooking     string
	Exercise    string
	Equipment   string
	Taste       string
	Ingredient  string
	PlanStyle   string
)

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"

	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"

	GoalFatLoss    Goal = "fat-loss"
	GoalShaping    Goal = "shaping"
	GoalMuscleGain Goal = "muscle-gain"

	IntensityMild       Intensity = "mild"
	IntensityBalanced   Intensity = "balanced"
	IntensityAggressive Intensity = "aggressive"

	ConditionDiabetes       Condition = "diabetes"
	ConditionHypertension   Condition = "hypertension"
	ConditionSeafoodAllergy Condition = "seafood-allergy"
	ConditionHeartDisease   Condition = "heart-disease"
	ConditionAsthma         Condition = "asthma"

	BodyPartHead      BodyPart = "head"
	BodyPartTorso     BodyPart = "torso"
	BodyPartLeftArm   BodyPart = "left-arm"
	BodyPartRightArm  BodyPart = "right-arm"
	BodyPartLeftLeg   BodyPart = "left-leg"
	BodyPartRightLeg  BodyPart = "right-leg"
	BodyPartLeftFoot  BodyPart = "left-foot"
	BodyPartRightFoot BodyPart = "right-foot"

	RestrictionHalal       Restriction = "halal"
	RestrictionVegetarian  Restriction = "vegetarian"
	RestrictionGlutenFree  Restriction = "gluten-free"
	RestrictionLactoseFree Restriction = "lactose-free"

	CookingBeginner     Cooking = "beginner"
	CookingIntermediate Cooking = "intermediate"
	CookingAdvanced     Cooking = "advanced"

	ExerciseRunning       Exercise = "running"
	ExerciseSwimming      Exercise = "swimming"
	ExerciseCycling       Exercise = "cycling"
	ExerciseYoga          Exercise = "yoga"
	ExerciseWeightlifting Exercise = "weightlifting"
	ExerciseBoxing        Exercise = "boxing"
	ExerciseDancing       Exercise = "dancing"
	ExerciseBasketball    Exercise = "basketball"

	EquipmentDumbbell       Equipment = "dumbbell"
	EquipmentJumpRope       Equipment = "jump-rope"
	EquipmentGymMembership  Equipment = "gym-membership"
	EquipmentYogaMat        Equipment = "yoga-mat"
	EquipmentResistanceBand Equipment = "resistance-band"
	EquipmentFoamRoller     Equipment = "foam-roller"
	EquipmentPullUpBar      Equipment = "pull-up-bar"
	EquipmentTreadmill      Equipment = "treadmill"

	TasteSweet  Taste = "sweet"
	TasteSalty  Taste = "salty"
	TasteSpicy  Taste = "spicy"
	TasteSour   Taste = "sour"
	TasteBitter Taste = "bitter"

	IngredientCoriander   Ingredient = "coriander"
	IngredientMushroom    Ingredient = "mushroom"
	IngredientCelery      Ingredient = "celery"
	IngredientSeafood     Ingredient = "seafood"
	IngredientBitterGourd Ingredient = "bitter-gourd"
	IngredientLiver       Ingredient = "liver"
	IngredientOnion       Ingredient = "onion"
	IngredientSpicy       Ingredient = "spicy"

	PlanStyleDisciplined PlanStyle = "disciplined"
	PlanStyleFlexible    PlanStyle = "flexible"
	PlanStyleAI          PlanStyle = "ai"
)

var (
	Genders     = Catalog[Gender]{Prefix: "gender", Values: []Gender{GenderMale, GenderFemale}}
	UnitSystems = Catalog[Units]{Prefix: "units", Values: []Units{UnitsMetric, UnitsImperial}}
	Goals       = Catalog[Goal]{Prefix: "goal", Values: []Goal{GoalFatLoss, GoalShaping, GoalMuscleGain}}
	Intensities = Catalog[Intensity]{
		Prefix: "intensity",
		Values: []Intensity{IntensityMild, IntensityBalanced, IntensityAggressive},
	}
	Conditions = Catalog[Condition]{Prefix: "condition", Values: []Condition{
		ConditionDiabetes, ConditionHypertension, ConditionSeafoodAllergy, ConditionHeartDisease, ConditionAsthma,
	}}
	BodyParts = Catalog[BodyPart]{Prefix: "bodypart", Values: []BodyPart{
		BodyPartHead, BodyPartTorso, BodyPartLeftArm, BodyPartRightArm,
		BodyPartLeftLeg, BodyPartRightLeg, BodyPartLeftFoot, BodyPartRightFoot,
	}}
	Restrictions = Catalog[Restriction]{Prefix: "restriction", Values: []Restriction{
		RestrictionHalal, RestrictionVegetarian, RestrictionGlutenFree, RestrictionLactoseFree,
	}}
	CookingLevels = Catalog[Cooking]{
		Prefix: "cooking",
		Values: []Cooking{CookingBeginner, CookingIntermediate, CookingAdvanced},
	}
	Exercises = Catalog[Exercise]{Prefix: "exercise", Values: []Exercise{
		ExerciseRunning, ExerciseSwimming, ExerciseCycling, ExerciseYoga,
		ExerciseWeightlifting, ExerciseBoxing, ExerciseDancing, ExerciseBasketball,
	}}
	EquipmentItems = Catalog[Equipment]{Prefix: "equipment", Values: []Equipment{
		EquipmentDumbbell, EquipmentJumpRope, EquipmentGymMembership, EquipmentYogaMat,
		EquipmentResistanceBand, EquipmentFoamRoller, EquipmentPullUpBar, EquipmentTreadmill,
	}}
	Tastes = Catalog[Taste]{Prefix: "taste", Values: []Taste{
		TasteSweet, TasteSalty, TasteSpicy, TasteSour, TasteBitter,
	}}
	Ingredients = Catalog[Ingredient]{Prefix: "ingredient", Values: []Ingredient{
		IngredientCoriander, IngredientMushroom, IngredientCelery, IngredientSeafood,
		IngredientBitterGourd, IngredientLiver, IngredientOnion, IngredientSpicy,
	}}
	PlanStyles = Catalog[PlanStyle]{
		Prefix: "planstyle",
		Values: []PlanStyle{PlanStyleDisciplined, PlanStyleFlexible, PlanStyleAI},
	}
)

// SyncToggles calls toggle for every value that is in exactly one of current and want, so that a toggle based
// draft ends up with the selection want.
func SyncToggles[T comparable](current, want []T, toggle func(T) error) error {
	var errs []error
	for _, v := range current {
		if !slices.Contains(want, v) {
			errs = append(errs, toggle(v))
		}
	}
	for _, v := range want {
		if !slices.Contains(current, v) {
			errs = append(errs, toggle(v))
		}
	}
	return errors.Join(errs...)
}

// normalizeCustom trims a free-text tag and reports whether it is non-blank and not yet in list, ignoring case.
func normalizeCustom(list []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, existing := range list {
		if strings.EqualFold(existing, s) {
			return "", false
		}
	}
	return s, true
}
