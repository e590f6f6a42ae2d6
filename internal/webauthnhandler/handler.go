// Package webauthnhandler signs trainees in with passkeys. Accounts exist so that plans generated in one browser
// session can be found again, so they carry no name or e-mail.
package webauthnhandler

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/sqlite"
)

// ceremonyTimeout bounds both registration and sign-in.
const ceremonyTimeout = 5 * time.Minute

// WebAuthnHandler runs the passkey ceremonies. The signed-in user's WebAuthn id is kept in the scs session.
type WebAuthnHandler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	database       *sqlite.Database
}

//nolint:gochecknoglobals // gob.Register panics on conflicting registrations.
var registerGob sync.Once

// relyingParty configures WebAuthn for fqdn. On localhost the origin is the plain HTTP address the server listens on.
func relyingParty(addr, fqdn string) *webauthn.Config {
	origin := "https://" + fqdn
	if fqdn == "localhost" {
		origin = "http://" + addr
	}
	timeouts := webauthn.TimeoutConfig{Enforce: true, Timeout: ceremonyTimeout, TimeoutUVD: ceremonyTimeout}
	return &webauthn.Config{
		RPID:                        fqdn,
		RPDisplayName:               "AI Trainer",
		RPOrigins:                   []string{origin},
		RPTopOrigins:                nil,
		RPTopOriginVerificationMode: protocol.TopOriginIgnoreVerificationMode,
		AttestationPreference:       protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      new(true),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		},
		Debug:                false,
		EncodeUserIDAsString: false,
		Timeouts:             webauthn.TimeoutsConfig{Login: timeouts, Registration: timeouts},
		MDS:                  nil,
	}
}

func New(
	addr string,
	fqdn string,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	dbs *sqlite.Database,
) (*WebAuthnHandler, error) {
	// Ceremony state lives in the session between the begin and finish requests.
	registerGob.Do(func() {
		gob.Register(webauthn.SessionData{}) //nolint:exhaustruct // only need to register the struct.
	})
	webAuthn, err := webauthn.New(relyingParty(addr, fqdn))
	if err != nil {
		return nil, errors.Wrap(err, "new webauthn", slog.String("fqdn", fqdn))
	}
	return &WebAuthnHandler{
		logger:         logger,
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		database:       dbs,
	}, nil
}

// BeginRegistration creates an anonymous user and returns the credential creation options as JSON.
func (h *WebAuthnHandler) BeginRegistration(ctx context.Context) ([]byte, error) {
	u, err := newRandomUser()
	if err != nil {
		return nil, errors.Wrap(err, "new user")
	}
	opts, ceremony, err := h.webAuthn.BeginRegistration(u,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, errors.Wrap(err, "begin registration")
	}
	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *ceremony)
	if err = h.upsertUser(ctx, u); err != nil {
		return nil, errors.Wrap(err, "upsert user")
	}
	return marshalOptions(opts)
}

// FinishRegistration stores the new passkey, signs the user in and returns the user id.
func (h *WebAuthnHandler) FinishRegistration(r *http.Request) (int, error) {
	ctx := r.Context()
	ceremony, err := h.ceremony(ctx)
	if err != nil {
		return 0, err
	}
	u, err := h.getUser(ctx, ceremony.UserID)
	if err != nil {
		return 0, errors.Wrap(err, "get user")
	}
	credential, err := h.webAuthn.FinishRegistration(u, ceremony, r)
	if err != nil {
		return 0, errors.Wrap(err, "finish registration")
	}
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return 0, errors.Wrap(err, "upsert credential")
	}
	return h.signIn(ctx, u.WebAuthnID())
}

// BeginLogin returns the options for a discoverable login as JSON.
func (h *WebAuthnHandler) BeginLogin(ctx context.Context) ([]byte, error) {
	opts, ceremony, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, errors.Wrap(err, "begin discoverable login")
	}
	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *ceremony)
	return marshalOptions(opts)
}

// FinishLogin validates the passkey assertion, signs the user in and returns the user id.
func (h *WebAuthnHandler) FinishLogin(r *http.Request) (int, error) {
	ctx := r.Context()
	ceremony, err := h.ceremony(ctx)
	if err != nil {
		return 0, err
	}
	parsed, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return 0, errors.Wrap(err, "parse credential request response")
	}
	findUser := func(_, userHandle []byte) (webauthn.User, error) {
		return h.getUser(ctx, userHandle)
	}
	u, credential, err := h.webAuthn.ValidatePasskeyLogin(findUser, ceremony, parsed)
	if err != nil {
		return 0, errors.Wrap(err, "validate passkey login")
	}
	// The sign count and flags change on every login.
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return 0, errors.Wrap(err, "upsert credential")
	}
	return h.signIn(ctx, u.WebAuthnID())
}

func (h *WebAuthnHandler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}

// signIn binds webAuthnID to a fresh session token.
func (h *WebAuthnHandler) signIn(ctx context.Context, webAuthnID []byte) (int, error) {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return 0, errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Remove(ctx, string(webAuthnSessionKey))
	h.sessionManager.Put(ctx, string(userIDSessionKey), webAuthnID)
	userID, err := h.getUserID(ctx, webAuthnID)
	if err != nil {
		return 0, errors.Wrap(err, "get user id")
	}
	return userID, nil
}

// ceremony returns the state BeginRegistration or BeginLogin left in the session.
func (h *WebAuthnHandler) ceremony(ctx context.Context) (webauthn.SessionData, error) {
	data, ok := h.sessionManager.Get(ctx, string(webAuthnSessionKey)).(webauthn.SessionData)
	if !ok {
		return data, errors.New("no webauthn ceremony in session")
	}
	return data, nil
}

func marshalOptions(opts any) ([]byte, error) {
	out, err := json.Marshal(opts)
	if err != nil {
		return nil, errors.Wrap(err, "marshal webauthn options")
	}
	return out, nil
}
