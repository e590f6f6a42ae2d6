package trainer

import (
	"math"
	"strconv"
	"strings"

	"github.com/myrjola/aitrainer/internal/errors"
)

const (
	MinAge = 15
	MaxAge = 80

	cmPerFoot = 30.48
	lbPerKg   = 2.20462
	mPerFoot  = 0.3048
	kgPerLb   = 0.453592

	maxHeartRateBase = 220
)

// BMIBand classifies a body mass index.
type BMIBand string

const (
	BMIUnderweight BMIBand = "underweight"
	BMINormal      BMIBand = "normal"
	BMIOverweight  BMIBand = "overweight"
	BMIObese       BMIBand = "obese"
)

var BMIBands = Catalog[BMIBand]{
	Prefix: "bmi",
	Values: []BMIBand{BMIUnderweight, BMINormal, BMIOverweight, BMIObese},
}

// BasicInfo is the committed record of the first step.
type BasicInfo struct {
	Gender Gender `json:"gender" yaml:"gender"`
	Age    int    `json:"age"    yaml:"age"`
	// Height is in centimetres or feet depending on Units.
	Height float64 `json:"height" yaml:"height"`
	// Weight is in kilograms or pounds depending on Units.
	Weight    float64   `json:"weight"            yaml:"weight"`
	Units     Units     `json:"units"             yaml:"units"`
	Goal      Goal      `json:"goal"              yaml:"goal"`
	Intensity Intensity `json:"intensity"         yaml:"intensity"`
	BodyFat   *float64  `json:"bodyFat,omitempty" yaml:"bodyFat,omitempty"`
}

// DefaultBasicInfo is what a fresh wizard shows on the first step.
func DefaultBasicInfo() BasicInfo {
	return BasicInfo{
		Gender:    GenderMale,
		Age:       25, //nolint:mnd // default age.
		Height:    170, //nolint:mnd // default height in cm.
		Weight:    65, //nolint:mnd // default weight in kg.
		Units:     UnitsMetric,
		Goal:      GoalShaping,
		Intensity: IntensityBalanced,
		BodyFat:   nil,
	}
}

func (b BasicInfo) clone() BasicInfo {
	if b.BodyFat != nil {
		bf := *b.BodyFat
		b.BodyFat = &bf
	}
	return b
}

// Validate checks the whole record.
func (b BasicInfo) Validate() error {
	var errs []error
	if !Genders.Contains(b.Gender) {
		errs = append(errs, invalid("gender", "unknown gender"))
	}
	if b.Age < MinAge || b.Age > MaxAge {
		errs = append(errs, invalid("age", "must be between 15 and 80"))
	}
	if !(b.Height > 0) || math.IsInf(b.Height, 0) {
		errs = append(errs, invalid("height", "must be positive"))
	}
	if !(b.Weight > 0) || math.IsInf(b.Weight, 0) {
		errs = append(errs, invalid("weight", "must be positive"))
	}
	if !UnitSystems.Contains(b.Units) {
		errs = append(errs, invalid("units", "unknown unit system"))
	}
	if !Goals.Contains(b.Goal) {
		errs = append(errs, invalid("goal", "unknown fitness goal"))
	}
	if !Intensities.Contains(b.Intensity) {
		errs = append(errs, invalid("intensity", "unknown training intensity"))
	}
	if b.BodyFat != nil && (*b.BodyFat <= 0 || *b.BodyFat >= 100) {
		errs = append(errs, invalid("bodyFat", "must be a percentage"))
	}
	return errors.Join(errs...)
}

// Metric returns the height in metres and weight in kilograms.
func (b BasicInfo) Metric() (float64, float64) {
	return toMetric(b.Height, b.Weight, b.Units)
}

// BMI returns the body mass index rounded to one decimal.
func (b BasicInfo) BMI() float64 {
	return BMI(b.Height, b.Weight, b.Units)
}

// BMIBand classifies BMI.
func (b BasicInfo) BMIBand() BMIBand {
	return ClassifyBMI(b.BMI())
}

func toMetric(height, weight float64, u Units) (float64, float64) {
	if u == UnitsImperial {
		return height * mPerFoot, weight * kgPerLb
	}
	return height / 100, weight //nolint:mnd // cm to m.
}

// BMI computes weight / height² from the values in unit system u, rounded to one decimal. Zero height gives zero.
func BMI(height, weight float64, u Units) float64 {
	heightM, weightKG := toMetric(height, weight, u)
	if heightM <= 0 || weightKG <= 0 {
		return 0
	}
	return math.Round(weightKG/(heightM*heightM)*10) / 10 //nolint:mnd // one decimal.
}

// ClassifyBMI bands bmi into underweight (<18.5), normal (<24), overweight (<28) and obese.
func ClassifyBMI(bmi float64) BMIBand {
	switch {
	case bmi < 18.5: //nolint:mnd // band limit.
		return BMIUnderweight
	case bmi < 24: //nolint:mnd // band limit.
		return BMINormal
	case bmi < 28: //nolint:mnd // band limit.
		return BMIOverweight
	default:
		return BMIObese
	}
}

// MaxHeartRate is the age predicted maximum heart rate.
func MaxHeartRate(age int) int {
	return maxHeartRateBase - age
}

// convertUnits converts height and weight from one unit system to the other, rounding to whole units like the
// form inputs do. The round trip drifts: 180 cm becomes 6 ft and then 183 cm.
func convertUnits(height, weight float64, from, to Units) (float64, float64) {
	switch {
	case from == UnitsMetric && to == UnitsImperial:
		return math.Round(height / cmPerFoot), math.Round(weight * lbPerKg)
	case from == UnitsImperial && to == UnitsMetric:
		return math.Round(height * cmPerFoot), math.Round(weight / lbPerKg)
	default:
		return height, weight
	}
}

// BasicInfoDraft holds the uncommitted input of the first step.
type BasicInfoDraft struct {
	rec BasicInfo
}

// NewBasicInfoDraft seeds a draft from prev or from the defaults when prev is nil.
func NewBasicInfoDraft(prev *BasicInfo) *BasicInfoDraft {
	if prev == nil {
		return &BasicInfoDraft{rec: DefaultBasicInfo()}
	}
	return &BasicInfoDraft{rec: prev.clone()}
}

// Record returns a copy of the draft.
func (d *BasicInfoDraft) Record() BasicInfo {
	return d.rec.clone()
}

// BMI is the live read-out of the current input.
func (d *BasicInfoDraft) BMI() float64 {
	return d.rec.BMI()
}

func (d *BasicInfoDraft) SetGender(g Gender) error {
	if !Genders.Contains(g) {
		return invalid("gender", "unknown gender")
	}
	d.rec.Gender = g
	return nil
}

// SetAge clamps age to the slider range.
func (d *BasicInfoDraft) SetAge(age int) {
	d.rec.Age = min(max(age, MinAge), MaxAge)
}

// SetHeight parses s. Unparsable or negative input becomes 0 and is rejected on submit.
func (d *BasicInfoDraft) SetHeight(s string) {
	d.rec.Height = parseMeasure(s)
}

// SetWeight parses s. Unparsable or negative input becomes 0 and is rejected on submit.
func (d *BasicInfoDraft) SetWeight(s string) {
	d.rec.Weight = parseMeasure(s)
}

func parseMeasure(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SetUnits switches the unit system, converting height and weight when it changes.
func (d *BasicInfoDraft) SetUnits(u Units) error {
	if !UnitSystems.Contains(u) {
		return invalid("units", "unknown unit system")
	}
	d.rec.Height, d.rec.Weight = convertUnits(d.rec.Height, d.rec.Weight, d.rec.Units, u)
	d.rec.Units = u
	return nil
}

// ToggleUnits flips between metric and imperial.
func (d *BasicInfoDraft) ToggleUnits() {
	next := UnitsImperial
	if d.rec.Units == UnitsImperial {
		next = UnitsMetric
	}
	_ = d.SetUnits(next)
}

func (d *BasicInfoDraft) SetGoal(g Goal) error {
	if !Goals.Contains(g) {
		return invalid("goal", "unknown fitness goal")
	}
	d.rec.Goal = g
	return nil
}

func (d *BasicInfoDraft) SetIntensity(i Intensity) error {
	if !Intensities.Contains(i) {
		return invalid("intensity", "unknown training intensity")
	}
	d.rec.Intensity = i
	return nil
}

// SetBodyFat parses an optional percentage. Blank input clears it.
func (d *BasicInfoDraft) SetBodyFat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.rec.BodyFat = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= 100 {
		return invalid("bodyFat", "must be a percentage")
	}
	d.rec.BodyFat = &v
	return nil
}

// Submit validates the draft and commits it to w.
func (d *BasicInfoDraft) Submit(w *Wizard) error {
	return w.SubmitBasicInfo(d.Record())
}
