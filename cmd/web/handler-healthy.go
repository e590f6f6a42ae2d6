package main

import (
	"encoding/json"
	"net/http"

	"github.com/myrjola/aitrainer/internal/errors"
)

type healthReport struct {
	Status string `json:"status"`
	// Generator is "rules" when no language model is configured.
	Generator string `json:"generator"`
}

// healthy reports that the server is up and which plan generator it runs with.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Generator: app.planService.GeneratorName()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		app.serverError(w, r, errors.Wrap(err, "encode health report"))
	}
}
