package main

import (
	"net/http"

	"github.com/myrjola/aitrainer/internal/errors"
)

func (app *application) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.webAuthnHandler.AuthenticateMiddleware(shared(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
	)

	mux.Handle("GET /trainer", session(http.HandlerFunc(app.trainerGET)))
	mux.Handle("GET /trainer/steps/{step}", session(http.HandlerFunc(app.stepGET)))
	mux.Handle("POST /trainer/steps/{step}", session(http.HandlerFunc(app.stepPOST)))
	mux.Handle("POST /trainer/back", session(http.HandlerFunc(app.backPOST)))
	mux.Handle("POST /trainer/edit/{step}", session(http.HandlerFunc(app.editPOST)))
	mux.Handle("POST /trainer/reset", session(http.HandlerFunc(app.resetPOST)))
	mux.Handle(generatePattern, session(http.HandlerFunc(app.generatePOST)))

	mux.Handle("GET /plans", session(http.HandlerFunc(app.plansGET)))
	mux.Handle("GET /plans/{id}", session(http.HandlerFunc(app.planGET)))

	mux.Handle("POST /api/registration/start", session(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", session(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", session(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", session(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", mustSession(http.HandlerFunc(app.logout)))
	mux.Handle("GET /api/healthy", session(http.HandlerFunc(app.healthy)))
	mux.Handle("POST /api/csp-violation", noAuth(http.HandlerFunc(app.cspViolation)))

	mux.Handle("POST /language", noAuth(http.HandlerFunc(app.setLanguagePOST)))

	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	static, err := app.staticFiles(noAuth, session)
	if err != nil {
		return nil, errors.Wrap(err, "static files")
	}
	mux.Handle("/", static)

	return mux, nil
}
