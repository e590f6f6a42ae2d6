package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/trainer"
)

// Review actions besides editing a step.
const (
	actionGenerate trainer.Step = 0
	actionQuit     trainer.Step = -1
	actionBack     trainer.Step = -2
)

// stepAction is the choice at the end of a step form.
type stepAction int

const (
	stepNext stepAction = iota
	stepBack
)

// navField asks whether to submit the step or go back to the previous one.
func navField(action *stepAction, tr func(string) string) huh.Field {
	return huh.NewSelect[stepAction]().
		Options(huh.NewOption(tr("wizard.next"), stepNext), huh.NewOption(tr("wizard.back"), stepBack)).
		Value(action)
}

// wentBack steps back when the user chose to. Answers on the abandoned form are dropped like in the browser.
func wentBack(w *trainer.Wizard, action stepAction) bool {
	if action != stepBack {
		return false
	}
	w.Back()
	return true
}

// applyReviewChoice carries out the action chosen on the review and reports whether the wizard is done.
func applyReviewChoice(w *trainer.Wizard, choice trainer.Step) (bool, error) {
	switch choice {
	case actionGenerate, actionQuit:
		return true, nil
	case actionBack:
		w.Back()
		return false, nil
	default:
		return false, w.EditStep(choice)
	}
}

// interact asks the current step until the user generates a plan from the review or quits.
func interact(ctx context.Context, w *trainer.Wizard, tr func(string) string, out io.Writer) (bool, error) {
	for {
		var err error
		switch step := w.Step(); step {
		case trainer.StepBasicInfo:
			err = askBasicInfo(ctx, w, tr, out)
		case trainer.StepHealthDetails:
			err = askHealthDetails(ctx, w, tr, out)
		case trainer.StepPreferences:
			err = askPreferences(ctx, w, tr, out)
		case trainer.StepReview:
			var (
				choice trainer.Step
				done   bool
			)
			if choice, err = askReviewAction(ctx, w, tr, out); err != nil {
				return false, err
			}
			if done, err = applyReviewChoice(w, choice); done {
				return choice == actionGenerate, err
			}
		default:
			return false, errors.New("unknown step", slog.String("step", step.String()))
		}
		if err != nil {
			return false, err
		}
	}
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithShowHelp(false).WithShowErrors(true)
}

func catalogOptions[T ~string](c trainer.Catalog[T], tr func(string) string) []huh.Option[T] {
	opts := make([]huh.Option[T], 0, len(c.Values))
	for _, v := range c.Values {
		opts = append(opts, huh.NewOption(tr(c.LabelKey(v)), v))
	}
	return opts
}

func rangeOptions(lo, hi int) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		opts = append(opts, huh.NewOption(strconv.Itoa(n), n))
	}
	return opts
}

func intBetween(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < lo || n > hi {
			return errors.New("must be a whole number from " + strconv.Itoa(lo) + " to " + strconv.Itoa(hi))
		}
		return nil
	}
}

// splitList splits comma separated free text, accepting the full width comma too.
func splitList(s string) []string {
	var out []string
	for part := range strings.FieldsFuncSeq(s, func(r rune) bool { return r == ',' || r == '，' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// retry reports whether a failed submission should be asked again. Field errors are shown to the user, anything
// else ends the wizard.
func retry(err error, tr func(string) string, out io.Writer) (bool, error) {
	if err == nil || !errors.Is(err, trainer.ErrInvalidField) {
		return false, err
	}
	if _, werr := fmt.Fprintln(out, renderFieldErrors(err, tr)); werr != nil {
		return false, errors.Wrap(werr, "print field errors")
	}
	return true, nil
}

func askBasicInfo(ctx context.Context, w *trainer.Wizard, tr func(string) string, out io.Writer) error {
	d := trainer.NewBasicInfoDraft(w.Basic())
	for {
		rec := d.Record()
		gender, units, age := rec.Gender, rec.Units, strconv.Itoa(rec.Age)
		err := newForm(huh.NewGroup(
			huh.NewSelect[trainer.Gender]().
				Title(tr("field.gender")).
				Options(catalogOptions(trainer.Genders, tr)...).
				Value(&gender),
			huh.NewInput().
				Title(tr("field.age")).
				Value(&age).
				Validate(intBetween(trainer.MinAge, trainer.MaxAge)),
			huh.NewSelect[trainer.Units]().
				Title(tr("field.units")).
				Options(catalogOptions(trainer.UnitSystems, tr)...).
				Value(&units),
		).Title(tr("step.basic-info"))).RunWithContext(ctx)
		if err != nil {
			return errors.Wrap(err, "basic info form")
		}
		n, _ := strconv.Atoi(strings.TrimSpace(age)) // validated by the form
		d.SetAge(n)
		// Height and weight are converted before they are asked so that the defaults match the chosen units.
		if err = errors.Join(d.SetGender(gender), d.SetUnits(units)); err != nil {
			return errors.Wrap(err, "apply basic info")
		}

		rec = d.Record()
		heightUnit, weightUnit := "cm", "kg"
		if rec.Units == trainer.UnitsImperial {
			heightUnit, weightUnit = "ft", "lb"
		}
		height, weight, bodyFat := formatFloat(rec.Height), formatFloat(rec.Weight), ""
		if rec.BodyFat != nil {
			bodyFat = formatFloat(*rec.BodyFat)
		}
		goal, intensity := rec.Goal, rec.Intensity
		err = newForm(huh.NewGroup(
			huh.NewInput().Title(tr("field.height")+" ("+heightUnit+")").Value(&height),
			huh.NewInput().Title(tr("field.weight")+" ("+weightUnit+")").Value(&weight),
			huh.NewInput().Title(tr("field.bodyFat")+" (%)").Value(&bodyFat).Validate(d.SetBodyFat),
			huh.NewSelect[trainer.Goal]().
				Title(tr("field.goal")).
				Options(catalogOptions(trainer.Goals, tr)...).
				Value(&goal),
			huh.NewSelect[trainer.Intensity]().
				Title(tr("field.intensity")).
				Options(catalogOptions(trainer.Intensities, tr)...).
				Value(&intensity),
		)).RunWithContext(ctx)
		if err != nil {
			return errors.Wrap(err, "basic info form")
		}
		d.SetHeight(height)
		d.SetWeight(weight)
		err = errors.Join(d.SetBodyFat(bodyFat), d.SetGoal(goal), d.SetIntensity(intensity))
		if err == nil {
			err = d.Submit(w)
		}
		if again, rerr := retry(err, tr, out); !again {
			return rerr
		}
	}
}

// reportRef describes the file at path the way a browser upload would.
func reportRef(path string) (*trainer.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &trainer.FieldError{Field: "medicalReport", Reason: "cannot read the file"}
	}
	return &trainer.FileRef{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:        info.Size(),
	}, nil
}

func askHealthDetails(ctx context.Context, w *trainer.Wizard, tr func(string) string, out io.Writer) error {
	d := trainer.NewHealthDraft(*w.Basic(), w.Health())
	setReport := func(path string) error {
		if strings.TrimSpace(path) == "" {
			return nil
		}
		ref, err := reportRef(strings.TrimSpace(path))
		if err != nil {
			return err
		}
		return d.SetMedicalReport(ref)
	}
	for {
		rec := d.Record()
		conditions, other := rec.Conditions, rec.OtherConditions
		keep := make([]int, len(rec.Injuries))
		injuryOpts := make([]huh.Option[int], len(rec.Injuries))
		for i, injury := range rec.Injuries {
			keep[i] = i
			injuryOpts[i] = huh.NewOption(tr(trainer.BodyParts.LabelKey(injury.Part))+": "+injury.Description, i)
		}
		var parts []trainer.BodyPart
		restrictions, custom := rec.Restrictions, strings.Join(rec.CustomRestrictions, ", ")
		frequency, cooking, sleep, stress := rec.Frequency, rec.Cooking, rec.Sleep, rec.Stress
		report, action := "", stepNext
		reportHint := tr("cli.reportHint")
		if rec.MedicalReport != nil {
			reportHint += " (" + rec.MedicalReport.Name + ")"
		}

		err := newForm(
			huh.NewGroup(
				huh.NewMultiSelect[trainer.Condition]().
					Title(tr("field.conditions")).
					Options(catalogOptions(trainer.Conditions, tr)...).
					Value(&conditions),
				huh.NewInput().Title(tr("health.otherConditions")).Value(&other),
			).Title(tr("step.health-details")),
			huh.NewGroup(
				huh.NewMultiSelect[int]().Title(tr("cli.keepInjuries")).Options(injuryOpts...).Value(&keep),
			).WithHideFunc(func() bool { return len(injuryOpts) == 0 }),
			huh.NewGroup(
				huh.NewMultiSelect[trainer.BodyPart]().
					Title(tr("cli.newInjuries")).
					Description(tr("health.bodyMapHint")).
					Options(catalogOptions(trainer.BodyParts, tr)...).
					Value(&parts),
			),
			huh.NewGroup(
				huh.NewSelect[int]().
					Title(tr("field.frequency")).
					Options(rangeOptions(trainer.MinScale, trainer.MaxScale)...).
					Value(&frequency),
				huh.NewMultiSelect[trainer.Restriction]().
					Title(tr("field.restrictions")).
					Options(catalogOptions(trainer.Restrictions, tr)...).
					Value(&restrictions),
				huh.NewInput().Title(tr("health.customRestriction")).Value(&custom),
				huh.NewSelect[trainer.Cooking]().
					Title(tr("field.cooking")).
					Options(catalogOptions(trainer.CookingLevels, tr)...).
					Value(&cooking),
				huh.NewSelect[int]().
					Title(tr("field.sleep")).
					Options(rangeOptions(trainer.MinScale, trainer.MaxScale)...).
					Value(&sleep),
				huh.NewSelect[int]().
					Title(tr("field.stress")).
					Options(rangeOptions(trainer.MinScale, trainer.MaxScale)...).
					Value(&stress),
				huh.NewInput().
					Title(tr("health.uploadReport")).
					Description(reportHint).
					Value(&report).
					Validate(setReport),
				navField(&action, tr),
			),
		).RunWithContext(ctx)
		if err != nil {
			return errors.Wrap(err, "health details form")
		}
		if wentBack(w, action) {
			return nil
		}

		errs := []error{trainer.SyncToggles(rec.Conditions, conditions, d.ToggleCondition)}
		d.SetOtherConditions(other)
		for i := len(rec.Injuries) - 1; i >= 0; i-- {
			if !slices.Contains(keep, i) {
				d.RemoveInjury(i)
			}
		}
		if err = describeInjuries(ctx, d, parts, tr); err != nil {
			return err
		}
		d.SetFrequency(frequency)
		errs = append(errs, trainer.SyncToggles(rec.Restrictions, restrictions, d.ToggleRestriction))
		for _, c := range rec.CustomRestrictions {
			d.RemoveCustomRestriction(c)
		}
		for _, c := range splitList(custom) {
			d.AddCustomRestriction(c)
		}
		errs = append(errs, d.SetCooking(cooking), setReport(report))
		d.SetSleep(sleep)
		d.SetStress(stress)

		if err = errors.Join(errs...); err == nil {
			err = d.Submit(w)
		}
		if again, rerr := retry(err, tr, out); !again {
			return rerr
		}
	}
}

// describeInjuries asks a description for every newly selected body part. Parts left without one are dropped.
func describeInjuries(
	ctx context.Context,
	d *trainer.HealthDraft,
	parts []trainer.BodyPart,
	tr func(string) string,
) error {
	if len(parts) == 0 {
		return nil
	}
	descriptions := make([]string, len(parts))
	fields := make([]huh.Field, len(parts))
	for i, p := range parts {
		if err := d.TogglePart(p); err != nil {
			return errors.Wrap(err, "select body part", slog.String("part", string(p)))
		}
		fields[i] = huh.NewInput().
			Title(tr(trainer.BodyParts.LabelKey(p))).
			Description(tr("health.describeInjury")).
			Value(&descriptions[i])
	}
	if err := newForm(huh.NewGroup(fields...).Title(tr("field.injuries"))).RunWithContext(ctx); err != nil {
		return errors.Wrap(err, "injury form")
	}
	for i, p := range parts {
		d.SetPendingDescription(p, descriptions[i])
		d.CommitInjury(p)
	}
	return nil
}

func parseTastes(s string) []trainer.Taste {
	fields := splitList(s)
	tastes := make([]trainer.Taste, len(fields))
	for i, f := range fields {
		tastes[i] = trainer.Taste(strings.ToLower(f))
	}
	return tastes
}

func formatTastes(tastes []trainer.Taste) string {
	parts := make([]string, len(tastes))
	for i, t := range tastes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func askPreferences(ctx context.Context, w *trainer.Wizard, tr func(string) string, out io.Writer) error {
	d := trainer.NewPreferenceDraft(w.Preferences())
	tasteLegend := make([]string, len(trainer.Tastes.Values))
	for i, t := range trainer.Tastes.Values {
		tasteLegend[i] = string(t) + " = " + tr(trainer.Tastes.LabelKey(t))
	}
	for {
		rec := d.Record()
		disliked, otherDisliked, equipment := rec.DislikedExercises, rec.OtherDisliked, rec.Equipment
		tastes := formatTastes(rec.Tastes)
		blacklist, custom := rec.Blacklist, strings.Join(rec.CustomBlacklist, ", ")
		exercisePeriod, dietPeriod, style := rec.ExercisePeriod, rec.DietPeriod, rec.Style
		action := stepNext

		err := newForm(
			huh.NewGroup(
				huh.NewMultiSelect[trainer.Exercise]().
					Title(tr("field.dislikedExercises")).
					Options(catalogOptions(trainer.Exercises, tr)...).
					Value(&disliked),
				huh.NewInput().Title(tr("preferences.otherDisliked")).Value(&otherDisliked),
				huh.NewMultiSelect[trainer.Equipment]().
					Title(tr("field.equipment")).
					Options(catalogOptions(trainer.EquipmentItems, tr)...).
					Value(&equipment),
			).Title(tr("step.preferences")),
			huh.NewGroup(
				huh.NewInput().
					Title(tr("field.tastes")).
					Description(tr("cli.tastesHint")+"\n"+strings.Join(tasteLegend, ", ")).
					Value(&tastes).
					Validate(func(s string) error { return d.SetTastes(parseTastes(s)) }),
				huh.NewMultiSelect[trainer.Ingredient]().
					Title(tr("field.blacklist")).
					Options(catalogOptions(trainer.Ingredients, tr)...).
					Value(&blacklist),
				huh.NewInput().Title(tr("preferences.customIngredient")).Value(&custom),
			),
			huh.NewGroup(
				huh.NewSelect[int]().
					Title(tr("field.exercisePeriod")).
					Options(rangeOptions(trainer.MinPeriodMonths, trainer.MaxPeriodMonths)...).
					Value(&exercisePeriod),
				huh.NewSelect[int]().
					Title(tr("field.dietPeriod")).
					Options(rangeOptions(trainer.MinPeriodMonths, trainer.MaxPeriodMonths)...).
					Value(&dietPeriod),
				huh.NewSelect[trainer.PlanStyle]().
					Title(tr("field.style")).
					Options(catalogOptions(trainer.PlanStyles, tr)...).
					Value(&style),
				navField(&action, tr),
			),
		).RunWithContext(ctx)
		if err != nil {
			return errors.Wrap(err, "preferences form")
		}
		if wentBack(w, action) {
			return nil
		}

		d.SetOtherDisliked(otherDisliked)
		for _, c := range rec.CustomBlacklist {
			d.RemoveCustomIngredient(c)
		}
		for _, c := range splitList(custom) {
			d.AddCustomIngredient(c)
		}
		d.SetExercisePeriod(exercisePeriod)
		d.SetDietPeriod(dietPeriod)
		err = errors.Join(
			trainer.SyncToggles(rec.DislikedExercises, disliked, d.ToggleDisliked),
			trainer.SyncToggles(rec.Equipment, equipment, d.ToggleEquipment),
			d.SetTastes(parseTastes(tastes)),
			trainer.SyncToggles(rec.Blacklist, blacklist, d.ToggleIngredient),
			d.SetStyle(style),
		)
		if err == nil {
			err = d.Submit(w)
		}
		if again, rerr := retry(err, tr, out); !again {
			return rerr
		}
	}
}

// askReviewAction shows the review and asks what to do next.
func askReviewAction(
	ctx context.Context,
	w *trainer.Wizard,
	tr func(string) string,
	out io.Writer,
) (trainer.Step, error) {
	sub, err := w.Submission()
	if err != nil {
		return actionQuit, errors.Wrap(err, "submission")
	}
	review := trainer.NewReview(sub, tr)
	if _, err = fmt.Fprintln(out, renderReview(review, tr)); err != nil {
		return actionQuit, errors.Wrap(err, "print review")
	}

	opts := []huh.Option[trainer.Step]{huh.NewOption(tr("review.generate"), actionGenerate)}
	for _, section := range review.Sections {
		opts = append(opts, huh.NewOption(tr("review.edit")+": "+section.Title, section.Edit))
	}
	opts = append(opts, huh.NewOption(tr("wizard.back"), actionBack), huh.NewOption(tr("cli.quit"), actionQuit))
	choice := actionGenerate
	err = newForm(huh.NewGroup(
		huh.NewSelect[trainer.Step]().Title(tr("cli.action")).Options(opts...).Value(&choice),
	)).RunWithContext(ctx)
	if err != nil {
		return actionQuit, errors.Wrap(err, "review form")
	}
	return choice, nil
}
