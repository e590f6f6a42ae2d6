package main

import (
	"net/http"

	"github.com/myrjola/aitrainer/internal/trainer"
)

type homeTemplateData struct {
	BaseTemplateData
	// Started is true when the visitor has already submitted the first step.
	Started   bool
	Step      trainer.Step
	PlanCount int
	Generator string
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wizard := app.wizard(ctx)
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Started:          wizard.Basic() != nil,
		Step:             wizard.Step(),
		PlanCount:        0,
		Generator:        app.planService.GeneratorName(),
	}

	plans, err := app.planService.List(ctx, app.planOwner(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data.PlanCount = len(plans)

	app.render(w, r, http.StatusOK, "home", data)
}
