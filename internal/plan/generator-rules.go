package plan

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/myrjola/aitrainer/internal/trainer"
)

// RuleGenerator builds a plan offline from fixed training and nutrition rules. It is used when no language model
// is configured and produces the same plan for the same submission.
type RuleGenerator struct{}

func (RuleGenerator) Name() string {
	return "rules"
}

// Training parameters per goal.
type regimen struct {
	focus            string
	sets             int
	minReps, maxReps int
	// Heart rate zone as a fraction of the maximum heart rate.
	zoneLow, zoneHigh float64
	// Daily calories relative to maintenance.
	calorieFactor float64
}

//nolint:gochecknoglobals,mnd // rule table.
var regimens = map[trainer.Goal]regimen{
	trainer.GoalFatLoss:    {focus: "endurance", sets: 3, minReps: 12, maxReps: 15, zoneLow: 0.6, zoneHigh: 0.7, calorieFactor: 0.8},
	trainer.GoalShaping:    {focus: "hypertrophy", sets: 3, minReps: 8, maxReps: 12, zoneLow: 0.65, zoneHigh: 0.75, calorieFactor: 1.0},
	trainer.GoalMuscleGain: {focus: "strength", sets: 4, minReps: 4, maxReps: 8, zoneLow: 0.7, zoneHigh: 0.8, calorieFactor: 1.15},
}

//nolint:gochecknoglobals,mnd // rule table.
var intensityMinutes = map[trainer.Intensity]int{
	trainer.IntensityMild:       30,
	trainer.IntensityBalanced:   45,
	trainer.IntensityAggressive: 60,
}

// Activities that need equipment list the alternatives that make them possible.
//
//nolint:gochecknoglobals // rule table.
var activityNeeds = map[trainer.Exercise][]trainer.Equipment{
	trainer.ExerciseWeightlifting: {trainer.EquipmentDumbbell, trainer.EquipmentGymMembership},
	trainer.ExerciseSwimming:      {trainer.EquipmentGymMembership},
}

// Activities that load a body part.
//
//nolint:gochecknoglobals // rule table.
var activityLoads = map[trainer.Exercise][]trainer.BodyPart{
	trainer.ExerciseRunning:       {trainer.BodyPartLeftLeg, trainer.BodyPartRightLeg, trainer.BodyPartLeftFoot, trainer.BodyPartRightFoot},
	trainer.ExerciseBasketball:    {trainer.BodyPartLeftLeg, trainer.BodyPartRightLeg, trainer.BodyPartLeftFoot, trainer.BodyPartRightFoot},
	trainer.ExerciseDancing:       {trainer.BodyPartLeftFoot, trainer.BodyPartRightFoot},
	trainer.ExerciseBoxing:        {trainer.BodyPartLeftArm, trainer.BodyPartRightArm, trainer.BodyPartHead},
	trainer.ExerciseWeightlifting: {trainer.BodyPartTorso, trainer.BodyPartLeftArm, trainer.BodyPartRightArm},
}

// Generate never fails for a valid submission but honours cancellation.
func (RuleGenerator) Generate(ctx context.Context, s trainer.Submission) (Draft, error) {
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}
	r := regimens[s.Basic.Goal]
	activities := suitableActivities(s)
	return Draft{
		Summary: ruleSummary(s, r),
		Workout: ruleWorkout(s, r, activities),
		Diet:    ruleDiet(s, r),
	}, nil
}

func suitableActivities(s trainer.Submission) []trainer.Exercise {
	injured := make([]trainer.BodyPart, 0, len(s.Health.Injuries))
	for _, injury := range s.Health.Injuries {
		injured = append(injured, injury.Part)
	}
	var out []trainer.Exercise
	for _, e := range trainer.Exercises.Values {
		if slices.Contains(s.Preferences.DislikedExercises, e) {
			continue
		}
		if needs, ok := activityNeeds[e]; ok && !slices.ContainsFunc(needs, func(eq trainer.Equipment) bool {
			return slices.Contains(s.Preferences.Equipment, eq)
		}) {
			continue
		}
		if slices.ContainsFunc(activityLoads[e], func(p trainer.BodyPart) bool { return slices.Contains(injured, p) }) {
			continue
		}
		out = append(out, e)
	}
	// Yoga is low impact and needs nothing, so there is always something to do.
	if len(out) == 0 {
		out = []trainer.Exercise{trainer.ExerciseYoga}
	}
	return out
}

func ruleSummary(s trainer.Submission, r regimen) string {
	return fmt.Sprintf("Your BMI is **%.1f** (%s). Over the next %d months you will train %d times a week "+
		"with a %s focus and eat about **%d kcal** a day.",
		s.Basic.BMI(), s.Basic.BMIBand(), s.Preferences.ExercisePeriod, s.Health.Frequency, r.focus,
		dailyCalories(s, r))
}

func ruleWorkout(s trainer.Submission, r regimen, activities []trainer.Exercise) string {
	var b strings.Builder
	maxHR := float64(s.Health.MaxHeartRate)
	fmt.Fprintf(&b, "## Weekly schedule\n\n")
	fmt.Fprintf(&b, "Keep your heart rate between **%d** and **%d** bpm.\n\n",
		int(math.Round(maxHR*r.zoneLow)), int(math.Round(maxHR*r.zoneHigh)))
	minutes := intensityMinutes[s.Basic.Intensity]
	// Poor sleep or high stress calls for a lighter load.
	if s.Health.Sleep <= 2 || s.Health.Stress >= 4 {
		minutes = minutes * 3 / 4 //nolint:mnd // quarter less.
		b.WriteString("Sessions are shortened because of your sleep and stress levels.\n\n")
	}
	for day := range s.Health.Frequency {
		activity := activities[day%len(activities)]
		fmt.Fprintf(&b, "- **Day %d**: %s for %d minutes, then %d sets of %d-%d reps of bodyweight %s work\n",
			day+1, activity, minutes, r.sets, r.minReps, r.maxReps, r.focus)
	}

	b.WriteString("\n## Phases\n\n")
	for month := 1; month <= s.Preferences.ExercisePeriod; month++ {
		fmt.Fprintf(&b, "- Month %d: %s\n", month, phase(month, s.Preferences.ExercisePeriod))
	}

	if len(s.Health.Injuries) > 0 || len(s.Health.Conditions) > 0 || s.Health.OtherConditions != "" {
		b.WriteString("\n## Precautions\n\n")
		for _, injury := range s.Health.Injuries {
			fmt.Fprintf(&b, "- Avoid loading the %s: %s\n", injury.Part, injury.Description)
		}
		for _, c := range s.Health.Conditions {
			fmt.Fprintf(&b, "- Consult your doctor about training with %s\n", c)
		}
		if s.Health.OtherConditions != "" {
			fmt.Fprintf(&b, "- Also mentioned: %s\n", s.Health.OtherConditions)
		}
	}
	return b.String()
}

func phase(month, total int) string {
	switch {
	case month == 1:
		return "learn the movements and build the habit"
	case month == total:
		return "consolidate and test your progress"
	case month <= total/2:
		return "increase volume by one set per exercise"
	default:
		return "increase intensity and shorten rests"
	}
}

// dailyCalories estimates needs with the Mifflin-St Jeor equation and a light activity factor.
func dailyCalories(s trainer.Submission, r regimen) int {
	height, weight := s.Basic.Metric()
	bmr := 10*weight + 6.25*height - 5*float64(s.Basic.Age) //nolint:mnd // Mifflin-St Jeor.
	if s.Basic.Gender == trainer.GenderMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	activity := 1.2 + 0.075*float64(s.Health.Frequency) //nolint:mnd // sedentary plus training days.
	return int(math.Round(bmr*activity*r.calorieFactor/10) * 10) //nolint:mnd // round to tens.
}

func ruleDiet(s trainer.Submission, r regimen) string {
	var b strings.Builder
	kcal := dailyCalories(s, r)
	fmt.Fprintf(&b, "## Daily targets\n\n- Energy: %d kcal\n- Protein: %d g\n\n",
		kcal, int(math.Round(proteinPerKg(s.Basic.Goal)*metricWeight(s))))

	protein := "chicken, eggs and fish"
	switch {
	case slices.Contains(s.Health.Restrictions, trainer.RestrictionVegetarian):
		protein = "tofu, eggs and legumes"
	case slices.Contains(s.Preferences.Blacklist, trainer.IngredientSeafood) ||
		slices.Contains(s.Health.Conditions, trainer.ConditionSeafoodAllergy):
		protein = "chicken, eggs and legumes"
	}
	if slices.Contains(s.Health.Restrictions, trainer.RestrictionHalal) {
		protein += " (halal certified)"
	}
	b.WriteString("## Meals\n\n")
	fmt.Fprintf(&b, "- Breakfast: oats with fruit and %s\n", dairy(s))
	fmt.Fprintf(&b, "- Lunch: %s with vegetables and %s\n", protein, grain(s))
	fmt.Fprintf(&b, "- Dinner: a %s dish with %s\n", cookingStyle(s.Health.Cooking), protein)
	if len(s.Preferences.Tastes) > 0 {
		fmt.Fprintf(&b, "\nSeason towards **%s** flavours.\n", s.Preferences.Tastes[0])
	}

	avoid := slices.Clone(s.Health.CustomRestrictions)
	for _, i := range s.Preferences.Blacklist {
		avoid = append(avoid, string(i))
	}
	avoid = append(avoid, s.Preferences.CustomBlacklist...)
	if len(avoid) > 0 {
		fmt.Fprintf(&b, "\n## Avoid\n\n%s\n", strings.Join(avoid, ", "))
	}
	if slices.Contains(s.Health.Conditions, trainer.ConditionDiabetes) {
		b.WriteString("\nPrefer low glycaemic carbohydrates and spread them evenly over the day.\n")
	}
	if slices.Contains(s.Health.Conditions, trainer.ConditionHypertension) {
		b.WriteString("\nKeep salt under 5 g a day.\n")
	}
	return b.String()
}

func metricWeight(s trainer.Submission) float64 {
	_, weight := s.Basic.Metric()
	return weight
}

func proteinPerKg(g trainer.Goal) float64 {
	switch g {
	case trainer.GoalMuscleGain:
		return 1.8 //nolint:mnd // g/kg.
	case trainer.GoalFatLoss:
		return 1.6 //nolint:mnd // g/kg.
	default:
		return 1.4 //nolint:mnd // g/kg.
	}
}

func dairy(s trainer.Submission) string {
	if slices.Contains(s.Health.Restrictions, trainer.RestrictionLactoseFree) {
		return "soy yoghurt"
	}
	return "yoghurt"
}

func grain(s trainer.Submission) string {
	if slices.Contains(s.Health.Restrictions, trainer.RestrictionGlutenFree) {
		return "rice"
	}
	return "whole grain bread"
}

func cookingStyle(c trainer.Cooking) string {
	switch c {
	case trainer.CookingAdvanced:
		return "slow-braised"
	case trainer.CookingIntermediate:
		return "stir-fried"
	default:
		return "one-pan"
	}
}
