package webauthnhandler

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/logging"
)

// AuthenticateMiddleware marks the request as authenticated when the session belongs to an existing user and adds
// the session hash and user id to the logging context.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var userID int
		if webAuthnID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey)); webAuthnID != nil {
			var err error
			userID, err = h.getUserID(ctx, webAuthnID)
			switch {
			case errors.Is(err, sql.ErrNoRows): // Do not authenticate if user does not exist.
			case err != nil:
				h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", errors.SlogError(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			default:
				r = contexthelpers.AuthenticateContext(r, userID)
			}
		}

		// Hash token with sha256 to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", userID),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
