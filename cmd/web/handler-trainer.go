package main

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/i18n"
	"github.com/myrjola/aitrainer/internal/trainer"
)

// maxStepBodySize leaves room for the other health form fields next to a maximum size medical report.
const maxStepBodySize = trainer.MaxMedicalReportSize + 1<<20

// stepLink is one entry of the progress indicator.
type stepLink struct {
	Number  int
	Name    string
	Current bool
	Done    bool
}

type stepTemplateData struct {
	BaseTemplateData
	Step           trainer.Step
	Progress       []stepLink
	ReturnToReview bool
	FieldErrors    map[string]string
}

func newStepTemplateData(r *http.Request, w *trainer.Wizard, fieldErrors map[string]string) stepTemplateData {
	progress := make([]stepLink, 0, len(trainer.Steps))
	for _, s := range trainer.Steps {
		progress = append(progress, stepLink{
			Number:  int(s),
			Name:    s.String(),
			Current: s == w.Step(),
			Done:    s < w.Step(),
		})
	}
	return stepTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Step:             w.Step(),
		Progress:         progress,
		ReturnToReview:   w.State().ReturnToReview,
		FieldErrors:      fieldErrors,
	}
}

// option is a selectable catalog value.
type option struct {
	Value    string
	LabelKey string
	Selected bool
}

func options[T ~string](c trainer.Catalog[T], selected ...T) []option {
	out := make([]option, 0, len(c.Values))
	for _, v := range c.Values {
		out = append(out, option{Value: string(v), LabelKey: c.LabelKey(v), Selected: slices.Contains(selected, v)})
	}
	return out
}

func stepPath(s trainer.Step) string {
	return "/trainer/steps/" + s.String()
}

func parseStep(name string) (trainer.Step, bool) {
	for _, s := range trainer.Steps {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// parseAction splits an action button value such as "remove-injury:2" into the action and its argument.
func parseAction(value string) (string, string) {
	action, arg, _ := strings.Cut(value, ":")
	return action, arg
}

// preconditionFailed sends the visitor back to the step the wizard is on.
func (app *application) preconditionFailed(w http.ResponseWriter, r *http.Request, wizard *trainer.Wizard, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelWarn, "wizard step not available",
		slog.String("current_step", wizard.Step().String()),
		errors.SlogError(err))
	redirect(w, r, stepPath(wizard.Step()))
}

func (app *application) trainerGET(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, stepPath(app.wizard(r.Context()).Step()))
}

func (app *application) stepGET(w http.ResponseWriter, r *http.Request) {
	step, ok := parseStep(r.PathValue("step"))
	if !ok {
		app.notFound(w, r)
		return
	}
	wizard := app.wizard(r.Context())
	if step != wizard.Step() {
		if !wizard.CanShow(step) {
			app.preconditionFailed(w, r, wizard, errors.Wrap(trainer.ErrStepPrecondition, "show step",
				slog.String("step", step.String())))
			return
		}
		redirect(w, r, stepPath(wizard.Step()))
		return
	}

	switch step {
	case trainer.StepBasicInfo:
		app.renderBasicInfo(w, r, wizard, trainer.NewBasicInfoDraft(wizard.Basic()), nil)
	case trainer.StepHealthDetails:
		app.renderHealth(w, r, wizard, trainer.NewHealthDraft(*wizard.Basic(), wizard.Health()), nil)
	case trainer.StepPreferences:
		app.renderPreferences(w, r, wizard, trainer.NewPreferenceDraft(wizard.Preferences()), nil)
	case trainer.StepReview:
		app.renderReview(w, r, wizard, "", http.StatusOK)
	}
}

func (app *application) stepPOST(w http.ResponseWriter, r *http.Request) {
	step, ok := parseStep(r.PathValue("step"))
	if !ok {
		app.notFound(w, r)
		return
	}
	wizard := app.wizard(r.Context())
	if step != wizard.Step() || step == trainer.StepReview {
		app.preconditionFailed(w, r, wizard, errors.Wrap(trainer.ErrStepPrecondition, "post step",
			slog.String("step", step.String())))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStepBodySize)
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) && step == trainer.StepHealthDetails {
			app.renderHealth(w, r, wizard, trainer.NewHealthDraft(*wizard.Basic(), wizard.Health()),
				map[string]string{"medicalReport": "must be at most 10 MiB"})
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
	}

	switch step {
	case trainer.StepBasicInfo:
		app.basicInfoPOST(w, r, wizard)
	case trainer.StepHealthDetails:
		app.healthPOST(w, r, wizard)
	case trainer.StepPreferences:
		app.preferencesPOST(w, r, wizard)
	case trainer.StepReview:
	}
}

// commit stores the outcome of submitting a draft. It returns the field errors to show when the draft was rejected
// and reports whether a response has been written.
func (app *application) commit(
	w http.ResponseWriter,
	r *http.Request,
	wizard *trainer.Wizard,
	err error,
) (map[string]string, bool) {
	switch {
	case err == nil:
		app.saveWizard(r.Context(), wizard)
		redirect(w, r, stepPath(wizard.Step()))
		return nil, true
	case errors.Is(err, trainer.ErrInvalidField):
		return trainer.FieldErrors(err), false
	case errors.Is(err, trainer.ErrStepPrecondition):
		app.preconditionFailed(w, r, wizard, err)
		return nil, true
	default:
		app.serverError(w, r, err)
		return nil, true
	}
}

func badAction(w http.ResponseWriter) {
	http.Error(w, "Unknown action", http.StatusBadRequest)
}

// fieldErrors collects setter errors by field.
type fieldErrors map[string]string

func (fe fieldErrors) add(err error) {
	for field, reason := range trainer.FieldErrors(err) {
		fe[field] = reason
	}
}

func formInt(form url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(form.Get(key)))
	if err != nil {
		return fallback
	}
	return n
}

func formValues[T ~string](form url.Values, key string) []T {
	out := make([]T, 0, len(form[key]))
	for _, v := range form[key] {
		out = append(out, T(v))
	}
	return out
}

type basicInfoTemplateData struct {
	stepTemplateData
	Record      trainer.BasicInfo
	BMI         float64
	BMIBandKey  string
	HeightUnit  string
	WeightUnit  string
	BodyFat     string
	MinAge      int
	MaxAge      int
	Genders     []option
	Goals       []option
	Intensities []option
}

// basicInfoDraft replays the submitted form onto a draft seeded from the committed record. The submitted unit
// system describes the submitted height and weight, so it is applied without conversion.
func basicInfoDraft(committed *trainer.BasicInfo, form url.Values) (*trainer.BasicInfoDraft, fieldErrors) {
	seed := trainer.DefaultBasicInfo()
	if committed != nil {
		seed = *committed
	}
	if u := trainer.Units(form.Get("units")); trainer.UnitSystems.Contains(u) {
		seed.Units = u
	}
	d := trainer.NewBasicInfoDraft(&seed)
	errs := fieldErrors{}
	errs.add(d.SetGender(trainer.Gender(form.Get("gender"))))
	d.SetAge(formInt(form, "age", seed.Age))
	d.SetHeight(form.Get("height"))
	d.SetWeight(form.Get("weight"))
	errs.add(d.SetGoal(trainer.Goal(form.Get("goal"))))
	errs.add(d.SetIntensity(trainer.Intensity(form.Get("intensity"))))
	errs.add(d.SetBodyFat(form.Get("bodyFat")))
	return d, errs
}

func (app *application) basicInfoPOST(w http.ResponseWriter, r *http.Request, wizard *trainer.Wizard) {
	draft, errs := basicInfoDraft(wizard.Basic(), r.PostForm)
	switch action, _ := parseAction(r.PostForm.Get("action")); action {
	case "toggle-units":
		draft.ToggleUnits()
	case "submit":
		if len(errs) > 0 {
			break
		}
		var done bool
		if errs, done = app.commit(w, r, wizard, draft.Submit(wizard)); done {
			return
		}
	default:
		badAction(w)
		return
	}
	app.renderBasicInfo(w, r, wizard, draft, errs)
}

func (app *application) renderBasicInfo(
	w http.ResponseWriter,
	r *http.Request,
	wizard *trainer.Wizard,
	draft *trainer.BasicInfoDraft,
	errs map[string]string,
) {
	rec := draft.Record()
	heightUnit, weightUnit := "cm", "kg"
	if rec.Units == trainer.UnitsImperial {
		heightUnit, weightUnit = "ft", "lb"
	}
	bodyFat := ""
	if rec.BodyFat != nil {
		bodyFat = formatFloat(*rec.BodyFat)
	}
	bmi := draft.BMI()
	data := basicInfoTemplateData{
		stepTemplateData: newStepTemplateData(r, wizard, errs),
		Record:           rec,
		BMI:              bmi,
		BMIBandKey:       trainer.BMIBands.LabelKey(trainer.ClassifyBMI(bmi)),
		HeightUnit:       heightUnit,
		WeightUnit:       weightUnit,
		BodyFat:          bodyFat,
		MinAge:           trainer.MinAge,
		MaxAge:           trainer.MaxAge,
		Genders:          options(trainer.Genders, rec.Gender),
		Goals:            options(trainer.Goals, rec.Goal),
		Intensities:      options(trainer.Intensities, rec.Intensity),
	}
	app.render(w, r, statusFor(errs), "basic-info", data)
}

// statusFor is 422 when the page shows validation errors.
func statusFor(errs map[string]string) int {
	if len(errs) > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

type bodyPartView struct {
	option
	Pending     bool
	Description string
}

type healthTemplateData struct {
	stepTemplateData
	Record        trainer.HealthDetails
	Conditions    []option
	BodyParts     []bodyPartView
	Restrictions  []option
	CookingLevels []option
	Scale         []int
	MaxReportMiB  int
}

// healthDraft replays the submitted form onto a draft seeded from the committed record, or the defaults for the
// submitted age. The maximum heart rate therefore always comes from the first seed.
func (app *application) healthDraft(
	r *http.Request,
	wizard *trainer.Wizard,
) (*trainer.HealthDraft, fieldErrors) {
	form := r.PostForm
	basic := *wizard.Basic()
	seed := trainer.DefaultHealthDetails(basic.Age)
	if committed := wizard.Health(); committed != nil {
		seed = *committed
	}
	seed.Injuries = nil
	for i, part := range form["injuryPart"] {
		if i < len(form["injuryDescription"]) {
			seed.Injuries = append(seed.Injuries, trainer.Injury{
				Part:        trainer.BodyPart(part),
				Description: form["injuryDescription"][i],
			})
		}
	}
	seed.CustomRestrictions = nil
	d := trainer.NewHealthDraft(basic, &seed)

	errs := fieldErrors{}
	errs.add(trainer.SyncToggles(seed.Conditions, formValues[trainer.Condition](form, "condition"),
		d.ToggleCondition))
	d.SetOtherConditions(form.Get("otherConditions"))
	for _, part := range formValues[trainer.BodyPart](form, "pending") {
		if err := d.TogglePart(part); err != nil {
			errs.add(err)
			continue
		}
		d.SetPendingDescription(part, form.Get("description-"+string(part)))
	}
	d.SetFrequency(formInt(form, "frequency", seed.Frequency))
	errs.add(trainer.SyncToggles(seed.Restrictions, formValues[trainer.Restriction](form, "restriction"),
		d.ToggleRestriction))
	for _, custom := range form["customRestriction"] {
		d.AddCustomRestriction(custom)
	}
	errs.add(d.SetCooking(trainer.Cooking(form.Get("cooking"))))
	d.SetSleep(formInt(form, "sleep", seed.Sleep))
	d.SetStress(formInt(form, "stress", seed.Stress))

	// A report uploaded earlier is carried along in hidden fields. Only its reference is kept.
	var report *trainer.FileRef
	if name := form.Get("reportName"); name != "" {
		size, _ := strconv.ParseInt(form.Get("reportSize"), 10, 64)
		report = &trainer.FileRef{Name: name, ContentType: form.Get("reportType"), Size: size}
	}
	file, header, err := r.FormFile("medicalReport")
	switch {
	case err == nil:
		_ = file.Close()
		report = &trainer.FileRef{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "read medical report", errors.SlogError(err))
	}
	errs.add(d.SetMedicalReport(report))
	return d, errs
}

func (app *application) healthPOST(w http.ResponseWriter, r *http.Request, wizard *trainer.Wizard) {
	draft, errs := app.healthDraft(r, wizard)
	action, arg := parseAction(r.PostForm.Get("action"))
	switch action {
	case "toggle-part":
		errs.add(draft.TogglePart(trainer.BodyPart(arg)))
	case "add-injury":
		if !draft.CommitInjury(trainer.BodyPart(arg)) {
			errs["injuries"] = "describe the injury first"
		}
	case "remove-injury":
		i, err := strconv.Atoi(arg)
		if err != nil {
			badAction(w)
			return
		}
		draft.RemoveInjury(i)
	case "add-restriction":
		draft.AddCustomRestriction(r.PostForm.Get("newRestriction"))
	case "remove-restriction":
		draft.RemoveCustomRestriction(arg)
	case "remove-report":
		errs.add(draft.SetMedicalReport(nil))
	case "submit":
		if len(errs) > 0 {
			break
		}
		var done bool
		if errs, done = app.commit(w, r, wizard, draft.Submit(wizard)); done {
			return
		}
	default:
		badAction(w)
		return
	}
	app.renderHealth(w, r, wizard, draft, errs)
}

func (app *application) renderHealth(
	w http.ResponseWriter,
	r *http.Request,
	wizard *trainer.Wizard,
	draft *trainer.HealthDraft,
	errs map[string]string,
) {
	rec := draft.Record()
	pending := draft.Pending()
	parts := make([]bodyPartView, 0, len(trainer.BodyParts.Values))
	for _, o := range options(trainer.BodyParts) {
		view := bodyPartView{option: o, Pending: false, Description: ""}
		if i := slices.IndexFunc(pending, func(p trainer.PendingInjury) bool {
			return string(p.Part) == o.Value
		}); i >= 0 {
			view.Pending = true
			view.Selected = true
			view.Description = pending[i].Description
		}
		parts = append(parts, view)
	}
	data := healthTemplateData{
		stepTemplateData: newStepTemplateData(r, wizard, errs),
		Record:           rec,
		Conditions:       options(trainer.Conditions, rec.Conditions...),
		BodyParts:        parts,
		Restrictions:     options(trainer.Restrictions, rec.Restrictions...),
		CookingLevels:    options(trainer.CookingLevels, rec.Cooking),
		Scale:            []int{1, 2, 3, 4, 5}, //nolint:mnd // the 1 to 5 scale.
		MaxReportMiB:     trainer.MaxMedicalReportSize >> 20,
	}
	app.render(w, r, statusFor(errs), "health-details", data)
}

type tasteView struct {
	Rank     int
	Value    string
	LabelKey string
	First    bool
	Last     bool
}

type preferencesTemplateData struct {
	stepTemplateData
	Record      trainer.Preferences
	Exercises   []option
	Equipment   []option
	Tastes      []tasteView
	Ingredients []option
	Styles      []option
	MinPeriod   int
	MaxPeriod   int
}

func preferenceDraft(committed *trainer.Preferences, form url.Values) (*trainer.PreferenceDraft, fieldErrors) {
	seed := trainer.DefaultPreferences()
	if committed != nil {
		seed = *committed
	}
	customBlacklist := form["customIngredient"]
	seed.CustomBlacklist = nil
	d := trainer.NewPreferenceDraft(&seed)

	errs := fieldErrors{}
	errs.add(trainer.SyncToggles(seed.DislikedExercises, formValues[trainer.Exercise](form, "disliked"),
		d.ToggleDisliked))
	d.SetOtherDisliked(strings.TrimSpace(form.Get("otherDisliked")))
	errs.add(trainer.SyncToggles(seed.Equipment, formValues[trainer.Equipment](form, "equipment"), d.ToggleEquipment))
	errs.add(d.SetTastes(formValues[trainer.Taste](form, "taste")))
	errs.add(trainer.SyncToggles(seed.Blacklist, formValues[trainer.Ingredient](form, "ingredient"), d.ToggleIngredient))
	for _, custom := range customBlacklist {
		d.AddCustomIngredient(custom)
	}
	d.SetExercisePeriod(formInt(form, "exercisePeriod", seed.ExercisePeriod))
	d.SetDietPeriod(formInt(form, "dietPeriod", seed.DietPeriod))
	errs.add(d.SetStyle(trainer.PlanStyle(form.Get("style"))))
	return d, errs
}

func (app *application) preferencesPOST(w http.ResponseWriter, r *http.Request, wizard *trainer.Wizard) {
	draft, errs := preferenceDraft(wizard.Preferences(), r.PostForm)
	action, arg := parseAction(r.PostForm.Get("action"))
	switch action {
	case "taste-up", "taste-down":
		i, err := strconv.Atoi(arg)
		if err != nil {
			badAction(w)
			return
		}
		delta := -1
		if action == "taste-down" {
			delta = 1
		}
		draft.MoveTaste(i, delta)
	case "add-ingredient":
		draft.AddCustomIngredient(r.PostForm.Get("newIngredient"))
	case "remove-ingredient":
		draft.RemoveCustomIngredient(arg)
	case "submit":
		if len(errs) > 0 {
			break
		}
		var done bool
		if errs, done = app.commit(w, r, wizard, draft.Submit(wizard)); done {
			return
		}
	default:
		badAction(w)
		return
	}
	app.renderPreferences(w, r, wizard, draft, errs)
}

func (app *application) renderPreferences(
	w http.ResponseWriter,
	r *http.Request,
	wizard *trainer.Wizard,
	draft *trainer.PreferenceDraft,
	errs map[string]string,
) {
	rec := draft.Record()
	tastes := make([]tasteView, 0, len(rec.Tastes))
	for i, taste := range rec.Tastes {
		tastes = append(tastes, tasteView{
			Rank:     i + 1,
			Value:    string(taste),
			LabelKey: trainer.Tastes.LabelKey(taste),
			First:    i == 0,
			Last:     i == len(rec.Tastes)-1,
		})
	}
	data := preferencesTemplateData{
		stepTemplateData: newStepTemplateData(r, wizard, errs),
		Record:           rec,
		Exercises:        options(trainer.Exercises, rec.DislikedExercises...),
		Equipment:        options(trainer.EquipmentItems, rec.Equipment...),
		Tastes:           tastes,
		Ingredients:      options(trainer.Ingredients, rec.Blacklist...),
		Styles:           options(trainer.PlanStyles, rec.Style),
		MinPeriod:        trainer.MinPeriodMonths,
		MaxPeriod:        trainer.MaxPeriodMonths,
	}
	app.render(w, r, statusFor(errs), "preferences", data)
}

type reviewTemplateData struct {
	stepTemplateData
	Review trainer.Review
	// ErrorKey is the translation key of a generation failure shown above the generate button.
	ErrorKey  string
	Generator string
}

func (app *application) renderReview(
	w http.ResponseWriter,
	r *http.Request,
	wizard *trainer.Wizard,
	errorKey string,
	status int,
) {
	sub, err := wizard.Submission()
	if err != nil {
		app.preconditionFailed(w, r, wizard, err)
		return
	}
	data := reviewTemplateData{
		stepTemplateData: newStepTemplateData(r, wizard, nil),
		Review:           trainer.NewReview(sub, i18n.Translator(contexthelpers.Language(r.Context()))),
		ErrorKey:         errorKey,
		Generator:        app.planService.GeneratorName(),
	}
	app.render(w, r, status, "review", data)
}

func (app *application) backPOST(w http.ResponseWriter, r *http.Request) {
	wizard := app.wizard(r.Context())
	wizard.Back()
	app.saveWizard(r.Context(), wizard)
	redirect(w, r, stepPath(wizard.Step()))
}

func (app *application) editPOST(w http.ResponseWriter, r *http.Request) {
	wizard := app.wizard(r.Context())
	step, ok := parseStep(r.PathValue("step"))
	if !ok {
		app.notFound(w, r)
		return
	}
	if err := wizard.EditStep(step); err != nil {
		app.preconditionFailed(w, r, wizard, err)
		return
	}
	app.saveWizard(r.Context(), wizard)
	redirect(w, r, stepPath(wizard.Step()))
}

func (app *application) resetPOST(w http.ResponseWriter, r *http.Request) {
	app.sessionManager.Remove(r.Context(), wizardSessionKey)
	redirect(w, r, stepPath(trainer.StepBasicInfo))
}

func (app *application) generatePOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wizard := app.wizard(ctx)
	p, err := app.planService.Generate(ctx, app.planOwner(ctx), wizard)
	switch {
	case err == nil:
		redirect(w, r, "/plans/"+p.ID.String())
	case errors.Is(err, trainer.ErrIncomplete):
		app.preconditionFailed(w, r, wizard, err)
	case errors.Is(err, trainer.ErrGeneration), errors.Is(err, trainer.ErrGenerationInProgress):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "plan generation failed", errors.SlogError(err))
		app.renderReview(w, r, wizard, "review.generationFailed", http.StatusBadGateway)
	default:
		app.serverError(w, r, err)
	}
}
