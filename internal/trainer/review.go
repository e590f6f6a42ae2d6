package trainer

import (
	"strconv"
	"strings"
)

// ReviewTag is a selected tag ready for display. Custom tags carry the user's own text.
type ReviewTag struct {
	Label  string
	Custom bool
}

// ReviewField is one labelled line of a review section.
type ReviewField struct {
	Label string
	Value string
	Tags  []ReviewTag
}

// ReviewSection summarises one step and links back to it for editing.
type ReviewSection struct {
	Title  string
	Edit   Step
	Fields []ReviewField
}

// Review is a read-only presentation of a submission.
type Review struct {
	BMI      float64
	BMIBand  string
	Sections []ReviewSection
}

// NewReview lays out sub for display. translate resolves translation keys such as "gender.male". Fixed and custom
// tags are merged here and nowhere else.
func NewReview(sub Submission, translate func(key string) string) Review {
	b, h, p := sub.Basic, sub.Health, sub.Preferences

	heightUnit, weightUnit := "cm", "kg"
	if b.Units == UnitsImperial {
		heightUnit, weightUnit = "ft", "lb"
	}
	bodyFat := translate("review.none")
	if b.BodyFat != nil {
		bodyFat = formatNumber(*b.BodyFat) + "%"
	}

	injuries := make([]ReviewTag, 0, len(h.Injuries))
	for _, injury := range h.Injuries {
		injuries = append(injuries, ReviewTag{
			Label:  translate(BodyParts.LabelKey(injury.Part)) + ": " + injury.Description,
			Custom: false,
		})
	}

	ranked := make([]string, 0, len(p.Tastes))
	for i, taste := range p.Tastes {
		ranked = append(ranked, "#"+strconv.Itoa(i+1)+" "+translate(Tastes.LabelKey(taste)))
	}

	report := translate("review.none")
	if h.MedicalReport != nil {
		report = h.MedicalReport.Name
	}

	months := translate("review.months")
	return Review{
		BMI:     b.BMI(),
		BMIBand: translate(BMIBands.LabelKey(b.BMIBand())),
		Sections: []ReviewSection{
			{
				Title: translate("step.basic-info"),
				Edit:  StepBasicInfo,
				Fields: []ReviewField{
					{Label: translate("field.gender"), Value: translate(Genders.LabelKey(b.Gender))},
					{Label: translate("field.age"), Value: strconv.Itoa(b.Age)},
					{Label: translate("field.height"), Value: formatNumber(b.Height) + " " + heightUnit},
					{Label: translate("field.weight"), Value: formatNumber(b.Weight) + " " + weightUnit},
					{Label: translate("field.bmi"), Value: formatNumber(b.BMI()) + " " + translate(BMIBands.LabelKey(b.BMIBand()))},
					{Label: translate("field.bodyFat"), Value: bodyFat},
					{Label: translate("field.goal"), Value: translate(Goals.LabelKey(b.Goal))},
					{Label: translate("field.intensity"), Value: translate(Intensities.LabelKey(b.Intensity))},
				},
			},
			{
				Title: translate("step.health-details"),
				Edit:  StepHealthDetails,
				Fields: []ReviewField{
					{Label: translate("field.conditions"), Tags: mergeTags(Conditions, h.Conditions, splitOther(h.OtherConditions), translate)},
					{Label: translate("field.injuries"), Tags: injuries},
					{Label: translate("field.frequency"), Value: strconv.Itoa(h.Frequency)},
					{Label: translate("field.maxHeartRate"), Value: strconv.Itoa(h.MaxHeartRate) + " bpm"},
					{Label: translate("field.restrictions"), Tags: mergeTags(Restrictions, h.Restrictions, h.CustomRestrictions, translate)},
					{Label: translate("field.cooking"), Value: translate(CookingLevels.LabelKey(h.Cooking))},
					{Label: translate("field.sleep"), Value: strconv.Itoa(h.Sleep) + "/5"},
					{Label: translate("field.stress"), Value: strconv.Itoa(h.Stress) + "/5"},
					{Label: translate("field.medicalReport"), Value: report},
				},
			},
			{
				Title: translate("step.preferences"),
				Edit:  StepPreferences,
				Fields: []ReviewField{
					{Label: translate("field.dislikedExercises"), Tags: mergeTags(Exercises, p.DislikedExercises, splitOther(p.OtherDisliked), translate)},
					{Label: translate("field.equipment"), Tags: mergeTags(EquipmentItems, p.Equipment, nil, translate)},
					{Label: translate("field.tastes"), Value: strings.Join(ranked, ", ")},
					{Label: translate("field.blacklist"), Tags: mergeTags(Ingredients, p.Blacklist, p.CustomBlacklist, translate)},
					{Label: translate("field.exercisePeriod"), Value: strconv.Itoa(p.ExercisePeriod) + " " + months},
					{Label: translate("field.dietPeriod"), Value: strconv.Itoa(p.DietPeriod) + " " + months},
					{Label: translate("field.style"), Value: translate(PlanStyles.LabelKey(p.Style))},
				},
			},
		},
	}
}

// mergeTags lists the fixed selection in catalog order followed by the custom entries.
func mergeTags[T ~string](c Catalog[T], fixed []T, custom []string, translate func(string) string) []ReviewTag {
	tags := make([]ReviewTag, 0, len(fixed)+len(custom))
	for _, v := range c.Sorted(fixed) {
		tags = append(tags, ReviewTag{Label: translate(c.LabelKey(v)), Custom: false})
	}
	for _, s := range custom {
		tags = append(tags, ReviewTag{Label: s, Custom: true})
	}
	return tags
}

// splitOther turns a free-text "other" answer into custom tags.
func splitOther(s string) []string {
	var out []string
	for part := range strings.FieldsFuncSeq(s, func(r rune) bool { return r == ',' || r == '，' || r == '\n' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
