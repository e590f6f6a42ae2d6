package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/aitrainer/internal/errors"
)

func (app *application) beginRegistration(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginRegistration(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "begin registration"))
		return
	}
	writeJSON(w, out)
}

func (app *application) finishRegistration(w http.ResponseWriter, r *http.Request) {
	userID, err := app.webAuthnHandler.FinishRegistration(r)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "registration failed", errors.SlogError(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	app.claimPlans(w, r, userID)
}

func (app *application) beginLogin(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginLogin(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "begin login"))
		return
	}
	writeJSON(w, out)
}

func (app *application) finishLogin(w http.ResponseWriter, r *http.Request) {
	userID, err := app.webAuthnHandler.FinishLogin(r)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "login failed", errors.SlogError(err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	app.claimPlans(w, r, userID)
}

// claimPlans moves the plans generated before signing in to the account that just signed in.
func (app *application) claimPlans(w http.ResponseWriter, r *http.Request, userID int) {
	ctx := r.Context()
	if err := app.planService.Claim(ctx, app.ownerKey(ctx), userID); err != nil {
		app.serverError(w, r, errors.Wrap(err, "claim plans", slog.Int("user_id", userID)))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.Logout(r.Context()); err != nil {
		app.serverError(w, r, errors.Wrap(err, "logout"))
		return
	}
	// Plans generated after signing out must not be claimable by the previous account.
	app.sessionManager.Remove(r.Context(), ownerKeySessionKey)
	redirect(w, r, "/")
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
