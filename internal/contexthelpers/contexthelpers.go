// Package contexthelpers carries per-request values set by the middleware to the handlers and templates.
package contexthelpers

import (
	"context"
	"net/http"

	"github.com/myrjola/aitrainer/internal/i18n"
)

type contextKey string

const (
	userIDKey      contextKey = "authenticatedUserID"
	currentPathKey contextKey = "currentPath"
	cspNonceKey    contextKey = "cspNonce"
	languageKey    contextKey = "language"
)

func with(r *http.Request, key contextKey, v any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, v))
}

// value returns the value stored under key or fallback when there is none.
func value[T any](ctx context.Context, key contextKey, fallback T) T {
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return fallback
}

// AuthenticateContext marks the request as coming from the user with userID. Plans generated on it belong to the
// account rather than the session.
func AuthenticateContext(r *http.Request, userID int) *http.Request {
	return with(r, userIDKey, userID)
}

func IsAuthenticated(ctx context.Context) bool {
	return AuthenticatedUserID(ctx) != 0
}

// AuthenticatedUserID returns the signed-in user's id or 0 for anonymous visitors.
func AuthenticatedUserID(ctx context.Context) int {
	return value(ctx, userIDKey, 0)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	return with(r, currentPathKey, currentPath)
}

func CurrentPath(ctx context.Context) string {
	return value(ctx, currentPathKey, "")
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	return with(r, cspNonceKey, cspNonce)
}

func CSPNonce(ctx context.Context) string {
	return value(ctx, cspNonceKey, "")
}

// SetLanguage records the language the wizard and plans are rendered in.
func SetLanguage(r *http.Request, language i18n.Language) *http.Request {
	return with(r, languageKey, language)
}

// Language returns the request language, falling back to i18n.DefaultLanguage.
func Language(ctx context.Context) i18n.Language {
	return value(ctx, languageKey, i18n.DefaultLanguage)
}
