package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/aitrainer/internal/errors"
)

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u webauthn.User) error {
	_, err := h.database.ReadWrite.ExecContext(ctx, `INSERT INTO users (webauthn_id, display_name)
VALUES (:webauthn_id, :display_name)
ON CONFLICT (webauthn_id) DO UPDATE SET display_name = :display_name`,
		sql.Named("webauthn_id", u.WebAuthnID()),
		sql.Named("display_name", u.WebAuthnDisplayName()))
	if err != nil {
		return errors.Wrap(err, "upsert user", slog.String("webauthn_id", hex.EncodeToString(u.WebAuthnID())))
	}
	return nil
}

// getUser loads the user with webAuthnID together with its passkeys.
func (h *WebAuthnHandler) getUser(ctx context.Context, webAuthnID []byte) (*user, error) {
	var u user
	err := h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT webauthn_id, display_name FROM users WHERE webauthn_id = ?`, webAuthnID).
		Scan(&u.id, &u.displayName)
	if err != nil {
		return nil, errors.Wrap(err, "read user")
	}
	if u.credentials, err = h.credentials(ctx, webAuthnID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (h *WebAuthnHandler) credentials(ctx context.Context, webAuthnID []byte) ([]webauthn.Credential, error) {
	rows, err := h.database.ReadOnly.QueryContext(ctx, `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = (SELECT id FROM users WHERE webauthn_id = ?)
ORDER BY created`, webAuthnID)
	if err != nil {
		return nil, errors.Wrap(err, "query credentials")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", errors.SlogError(closeErr))
		}
	}()

	var out []webauthn.Credential
	for rows.Next() {
		var (
			c         webauthn.Credential
			transport []byte
		)
		if err = rows.Scan(
			&c.ID,
			&c.PublicKey,
			&c.AttestationType,
			&transport,
			&c.Flags.UserPresent,
			&c.Flags.UserVerified,
			&c.Flags.BackupEligible,
			&c.Flags.BackupState,
			&c.Authenticator.AAGUID,
			&c.Authenticator.SignCount,
			&c.Authenticator.CloneWarning,
			&c.Authenticator.Attachment,
		); err != nil {
			return nil, errors.Wrap(err, "scan credential")
		}
		if err = json.Unmarshal(transport, &c.Transport); err != nil {
			return nil, errors.Wrap(err, "decode transport")
		}
		out = append(out, c)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate credentials")
	}
	return out, nil
}

// upsertCredential stores a new passkey or refreshes the counters and flags of a known one.
func (h *WebAuthnHandler) upsertCredential(ctx context.Context, webAuthnID []byte, c *webauthn.Credential) error {
	transport, err := json.Marshal(c.Transport)
	if err != nil {
		return errors.Wrap(err, "encode transport")
	}
	_, err = h.database.ReadWrite.ExecContext(ctx, `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES ($1, (SELECT id FROM users WHERE webauthn_id = $2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET transport                   = EXCLUDED.transport,
                               flag_user_present           = EXCLUDED.flag_user_present,
                               flag_user_verified          = EXCLUDED.flag_user_verified,
                               flag_backup_eligible        = EXCLUDED.flag_backup_eligible,
                               flag_backup_state           = EXCLUDED.flag_backup_state,
                               authenticator_sign_count    = EXCLUDED.authenticator_sign_count,
                               authenticator_clone_warning = EXCLUDED.authenticator_clone_warning,
                               updated                     = strftime('%Y-%m-%dT%H:%M:%SZ')`,
		c.ID,
		webAuthnID,
		c.PublicKey,
		c.AttestationType,
		string(transport),
		c.Flags.UserPresent,
		c.Flags.UserVerified,
		c.Flags.BackupEligible,
		c.Flags.BackupState,
		c.Authenticator.AAGUID,
		c.Authenticator.SignCount,
		c.Authenticator.CloneWarning,
		c.Authenticator.Attachment,
	)
	if err != nil {
		return errors.Wrap(err, "upsert credential", slog.String("credential_id", hex.EncodeToString(c.ID)))
	}
	return nil
}

// getUserID returns the row id of the user with webAuthnID. The error wraps sql.ErrNoRows for unknown users.
func (h *WebAuthnHandler) getUserID(ctx context.Context, webAuthnID []byte) (int, error) {
	var id int
	if err := h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT id FROM users WHERE webauthn_id = ?`, webAuthnID).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "query user id")
	}
	return id, nil
}
