package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/i18n"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/trainer"
)

type plansTemplateData struct {
	BaseTemplateData
	Plans []plan.Plan
}

func (app *application) plansGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := app.planService.List(ctx, app.planOwner(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "plans", plansTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plans:            plans,
	})
}

type planTemplateData struct {
	BaseTemplateData
	Plan   plan.Plan
	Review trainer.Review
}

func (app *application) planGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		app.notFound(w, r)
		return
	}
	p, err := app.planService.Get(ctx, app.planOwner(ctx), id)
	if errors.Is(err, plan.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "plan", planTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plan:             p,
		Review:           trainer.NewReview(p.Submission, i18n.Translator(contexthelpers.Language(ctx))),
	})
}
