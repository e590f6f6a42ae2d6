package main

import (
	"net/http"
	"net/url"
	"time"

	"github.com/myrjola/aitrainer/internal/i18n"
)

const languageCookieLifetime = 365 * 24 * time.Hour

// setLanguagePOST switches the interface language and returns to the page the switch was used on. The wizard
// answers live in the session, so a step re-renders in the new language with nothing lost.
func (app *application) setLanguagePOST(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Language(r.FormValue("language"))
	if !i18n.IsSupported(lang) {
		http.Error(w, "Invalid language", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{ //nolint:exhaustruct // zero values are the defaults.
		Name:     languageCookie,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int(languageCookieLifetime.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

// localPath reports whether p is an absolute path on this site. Scheme relative "//host" and "/\host" paths are
// rejected because browsers treat them as other hosts.
func localPath(p string) bool {
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" || len(p) == 0 || p[0] != '/' {
		return false
	}
	return len(p) == 1 || (p[1] != '/' && p[1] != '\\')
}

// returnPath is the page the language switch was submitted from: the form's return value, else the same-host
// referrer, else the home page.
func returnPath(r *http.Request) string {
	if p := r.FormValue("return"); localPath(p) {
		return p
	}
	if u, err := url.Parse(r.Header.Get("Referer")); err == nil && u.Host == r.Host && localPath(u.RequestURI()) {
		return u.RequestURI()
	}
	return "/"
}
