package passkey

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// CredentialRepository persists credentials in Postgres. The full credential
// is stored as JSON so sign counter, flags and transports survive round
// trips; credential_id is kept as a column for lookups.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a repo.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Save stores a subject's credential. The unique user_id index enforces
// one-credential-per-subject atomically.
func (r *CredentialRepository) Save(ctx context.Context, subjectID string, cred webauthn.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO passkey_credentials (user_id, credential_id, credential, sign_count)
		VALUES ($1,$2,$3,$4)
	`, subjectID, cred.ID, payload, cred.Authenticator.SignCount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// Get returns the subject's credential.
func (r *CredentialRepository) Get(ctx context.Context, subjectID string) (webauthn.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT credential FROM passkey_credentials WHERE user_id = $1
	`, subjectID)
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return webauthn.Credential{}, ErrNoCredential
	}
	if err != nil {
		return webauthn.Credential{}, err
	}
	var cred webauthn.Credential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return webauthn.Credential{}, err
	}
	return cred, nil
}

// Update replaces the stored credential after an authentication.
func (r *CredentialRepository) Update(ctx context.Context, subjectID string, cred webauthn.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE passkey_credentials
		SET credential = $2, sign_count = $3, updated_at = NOW()
		WHERE user_id = $1
	`, subjectID, payload, cred.Authenticator.SignCount)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoCredential
	}
	return nil
}
