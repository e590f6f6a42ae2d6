package trainer

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/myrjola/aitrainer/internal/errors"
)

const (
	MinScale = 1
	MaxScale = 5

	// MaxMedicalReportSize limits the accepted medical report upload.
	MaxMedicalReportSize = 10 << 20
)

// Injury is a completed body map entry.
type Injury struct {
	Part        BodyPart `json:"part"        yaml:"part"`
	Description string   `json:"description" yaml:"description"`
}

// FileRef is an opaque reference to an uploaded medical report. The contents are never read.
type FileRef struct {
	Name        string `json:"name"        yaml:"name"`
	ContentType string `json:"contentType" yaml:"contentType"`
	Size        int64  `json:"size"        yaml:"size"`
}

// HealthDetails is the committed record of the second step.
type HealthDetails struct {
	Conditions      []Condition `json:"conditions"      yaml:"conditions"`
	OtherConditions string      `json:"otherConditions" yaml:"otherConditions"`
	Injuries        []Injury    `json:"injuries"        yaml:"injuries"`
	// Frequency is the number of workouts per week, 1 to 5.
	Frequency int `json:"frequency" yaml:"frequency"`
	// MaxHeartRate is derived from the age when the step is first seeded and is not recomputed afterwards.
	MaxHeartRate       int           `json:"maxHeartRate"            yaml:"maxHeartRate"`
	Restrictions       []Restriction `json:"restrictions"            yaml:"restrictions"`
	CustomRestrictions []string      `json:"customRestrictions"      yaml:"customRestrictions"`
	Cooking            Cooking       `json:"cooking"                 yaml:"cooking"`
	Sleep              int           `json:"sleep"                   yaml:"sleep"`
	Stress             int           `json:"stress"                  yaml:"stress"`
	MedicalReport      *FileRef      `json:"medicalReport,omitempty" yaml:"medicalReport,omitempty"`
}

// DefaultHealthDetails seeds the second step for someone of the given age.
func DefaultHealthDetails(age int) HealthDetails {
	return HealthDetails{
		Conditions:         nil,
		OtherConditions:    "",
		Injuries:           nil,
		Frequency:          2, //nolint:mnd // default workouts per week.
		MaxHeartRate:       MaxHeartRate(age),
		Restrictions:       nil,
		CustomRestrictions: nil,
		Cooking:            CookingBeginner,
		Sleep:              3, //nolint:mnd // middle of the scale.
		Stress:             3, //nolint:mnd // middle of the scale.
		MedicalReport:      nil,
	}
}

func (h HealthDetails) clone() HealthDetails {
	h.Conditions = slices.Clone(h.Conditions)
	h.Injuries = slices.Clone(h.Injuries)
	h.Restrictions = slices.Clone(h.Restrictions)
	h.CustomRestrictions = slices.Clone(h.CustomRestrictions)
	if h.MedicalReport != nil {
		ref := *h.MedicalReport
		h.MedicalReport = &ref
	}
	return h
}

// Validate checks the whole record.
func (h HealthDetails) Validate() error {
	var errs []error
	if !Conditions.ContainsAll(h.Conditions) {
		errs = append(errs, invalid("conditions", "unknown condition"))
	}
	for _, injury := range h.Injuries {
		if !BodyParts.Contains(injury.Part) {
			errs = append(errs, invalid("injuries", "unknown body part"))
		}
		if strings.TrimSpace(injury.Description) == "" {
			errs = append(errs, invalid("injuries", "description is required"))
		}
	}
	if h.Frequency < MinScale || h.Frequency > MaxScale {
		errs = append(errs, invalid("frequency", "must be between 1 and 5"))
	}
	if h.MaxHeartRate < MaxHeartRate(MaxAge) || h.MaxHeartRate > MaxHeartRate(MinAge) {
		errs = append(errs, invalid("maxHeartRate", "must be derived from an age between 15 and 80"))
	}
	if !Restrictions.ContainsAll(h.Restrictions) {
		errs = append(errs, invalid("restrictions", "unknown dietary restriction"))
	}
	if !CookingLevels.Contains(h.Cooking) {
		errs = append(errs, invalid("cooking", "unknown cooking level"))
	}
	if h.Sleep < MinScale || h.Sleep > MaxScale {
		errs = append(errs, invalid("sleep", "must be between 1 and 5"))
	}
	if h.Stress < MinScale || h.Stress > MaxScale {
		errs = append(errs, invalid("stress", "must be between 1 and 5"))
	}
	if h.MedicalReport != nil {
		if err := validateMedicalReport(*h.MedicalReport); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// validateMedicalReport accepts PDFs and images up to MaxMedicalReportSize.
func validateMedicalReport(ref FileRef) error {
	if ref.Size <= 0 || ref.Size > MaxMedicalReportSize {
		return invalid("medicalReport", "must be at most 10 MiB")
	}
	contentType := ref.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(ref.Name)))
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || (mediaType != "application/pdf" && !strings.HasPrefix(mediaType, "image/")) {
		return invalid("medicalReport", "must be a PDF or an image")
	}
	return nil
}

// PendingInjury is a body part selected on the body map that still awaits a description.
type PendingInjury struct {
	Part        BodyPart
	Description string
}

// HealthDraft holds the uncommitted input of the second step. The pending body map selection and the custom
// restriction input are transient and never reach the committed record.
type HealthDraft struct {
	rec     HealthDetails
	pending []PendingInjury
}

// NewHealthDraft seeds a draft from prev, or from the defaults for basic's age when prev is nil.
func NewHealthDraft(basic BasicInfo, prev *HealthDetails) *HealthDraft {
	if prev == nil {
		return &HealthDraft{rec: DefaultHealthDetails(basic.Age), pending: nil}
	}
	return &HealthDraft{rec: prev.clone(), pending: nil}
}

// Record returns a copy of the draft without the pending injuries.
func (d *HealthDraft) Record() HealthDetails {
	return d.rec.clone()
}

func (d *HealthDraft) MaxHeartRate() int {
	return d.rec.MaxHeartRate
}

func (d *HealthDraft) ToggleCondition(c Condition) error {
	if !Conditions.Contains(c) {
		return invalid("conditions", "unknown condition")
	}
	d.rec.Conditions = Conditions.Sorted(toggle(d.rec.Conditions, c))
	return nil
}

func (d *HealthDraft) SetOtherConditions(s string) {
	d.rec.OtherConditions = strings.TrimSpace(s)
}

// TogglePart selects or deselects a body part on the body map.
func (d *HealthDraft) TogglePart(p BodyPart) error {
	if !BodyParts.Contains(p) {
		return invalid("injuries", "unknown body part")
	}
	if i := d.pendingIndex(p); i >= 0 {
		d.pending = slices.Delete(d.pending, i, i+1)
		return nil
	}
	d.pending = append(d.pending, PendingInjury{Part: p, Description: ""})
	return nil
}

// SetPendingDescription updates the description typed for a selected body part.
func (d *HealthDraft) SetPendingDescription(p BodyPart, description string) {
	if i := d.pendingIndex(p); i >= 0 {
		d.pending[i].Description = description
	}
}

// Pending returns the selected body parts in body map order.
func (d *HealthDraft) Pending() []PendingInjury {
	out := make([]PendingInjury, 0, len(d.pending))
	for _, part := range BodyParts.Values {
		if i := d.pendingIndex(part); i >= 0 {
			out = append(out, d.pending[i])
		}
	}
	return out
}

func (d *HealthDraft) pendingIndex(p BodyPart) int {
	return slices.IndexFunc(d.pending, func(pi PendingInjury) bool { return pi.Part == p })
}

// CommitInjury turns the pending selection of p into an injury. Nothing happens while the description is blank.
func (d *HealthDraft) CommitInjury(p BodyPart) bool {
	i := d.pendingIndex(p)
	if i < 0 {
		return false
	}
	description := strings.TrimSpace(d.pending[i].Description)
	if description == "" {
		return false
	}
	d.rec.Injuries = append(d.rec.Injuries, Injury{Part: p, Description: description})
	d.pending = slices.Delete(d.pending, i, i+1)
	return true
}

// RemoveInjury drops the committed injury at index i.
func (d *HealthDraft) RemoveInjury(i int) {
	if i >= 0 && i < len(d.rec.Injuries) {
		d.rec.Injuries = slices.Delete(d.rec.Injuries, i, i+1)
	}
}

// SetFrequency clamps n to 1..5.
func (d *HealthDraft) SetFrequency(n int) {
	d.rec.Frequency = clampScale(n)
}

// ToggleRestriction only affects the fixed restrictions. Custom restrictions are kept as they are.
func (d *HealthDraft) ToggleRestriction(r Restriction) error {
	if !Restrictions.Contains(r) {
		return invalid("restrictions", "unknown dietary restriction")
	}
	d.rec.Restrictions = Restrictions.Sorted(toggle(d.rec.Restrictions, r))
	return nil
}

// AddCustomRestriction appends a free-text restriction unless it is blank or already present.
func (d *HealthDraft) AddCustomRestriction(s string) bool {
	s, ok := normalizeCustom(d.rec.CustomRestrictions, s)
	if ok {
		d.rec.CustomRestrictions = append(d.rec.CustomRestrictions, s)
	}
	return ok
}

func (d *HealthDraft) RemoveCustomRestriction(s string) {
	d.rec.CustomRestrictions = slices.DeleteFunc(d.rec.CustomRestrictions, func(c string) bool { return c == s })
}

func (d *HealthDraft) SetCooking(c Cooking) error {
	if !CookingLevels.Contains(c) {
		return invalid("cooking", "unknown cooking level")
	}
	d.rec.Cooking = c
	return nil
}

// SetSleep clamps n to 1..5.
func (d *HealthDraft) SetSleep(n int) {
	d.rec.Sleep = clampScale(n)
}

// SetStress clamps n to 1..5.
func (d *HealthDraft) SetStress(n int) {
	d.rec.Stress = clampScale(n)
}

// SetMedicalReport attaches a report reference. A nil ref removes it.
func (d *HealthDraft) SetMedicalReport(ref *FileRef) error {
	if ref == nil {
		d.rec.MedicalReport = nil
		return nil
	}
	if err := validateMedicalReport(*ref); err != nil {
		return err
	}
	r := *ref
	d.rec.MedicalReport = &r
	return nil
}

// Submit validates the draft and commits it to w. Pending injuries are dropped.
func (d *HealthDraft) Submit(w *Wizard) error {
	return w.SubmitHealthDetails(d.Record())
}

func clampScale(n int) int {
	return min(max(n, MinScale), MaxScale)
}

func toggle[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}
