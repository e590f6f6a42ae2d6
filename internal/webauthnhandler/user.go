package webauthnhandler

import (
	"crypto/rand"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
)

type sessionKey string

const (
	webAuthnSessionKey sessionKey = "webauthn_session"
	userIDSessionKey   sessionKey = "webauthn_user_id"
)

// webAuthnIDLength is the maximum user handle length allowed by WebAuthn.
const webAuthnIDLength = 64

// user implements webauthn.User. Users have no name; the display name is derived from the id.
type user struct {
	id          []byte
	displayName string
	credentials []webauthn.Credential
}

func newRandomUser() (*user, error) {
	id := make([]byte, webAuthnIDLength)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("read random id: %w", err)
	}
	return &user{
		id:          id,
		displayName: fmt.Sprintf("Trainee %X", id[:4]),
		credentials: nil,
	}, nil
}

func (u *user) WebAuthnID() []byte {
	return u.id
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
