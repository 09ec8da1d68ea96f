// Package passkey runs the WebAuthn challenge/response handshake used for
// optional biometric confirmation. Every challenge is single-use and bound to
// one subject; finishing a ceremony always consumes it, success or failure.
package passkey

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"rollcall/internal/roster"
)

// Config identifies the relying party.
type Config struct {
	RPID      string
	RPName    string
	RPOrigins []string
}

// Broker coordinates WebAuthn ceremonies against injected stores. It owns no
// global state; the challenge store is the single shared resource and is
// handed in at construction.
type Broker struct {
	web        *webauthn.WebAuthn
	users      roster.Store
	challenges ChallengeStore
	creds      CredentialStore
}

// New creates a broker for the given relying party.
func New(cfg Config, users roster.Store, challenges ChallengeStore, creds CredentialStore) (*Broker, error) {
	if cfg.RPID == "" || cfg.RPName == "" || len(cfg.RPOrigins) == 0 {
		return nil, fmt.Errorf("relying party id, name and origins required")
	}
	web, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn config: %w", err)
	}
	return &Broker{web: web, users: users, challenges: challenges, creds: creds}, nil
}

// BeginRegistration issues a registration challenge for the subject,
// overwriting any prior pending challenge.
func (b *Broker) BeginRegistration(ctx context.Context, subjectID string) (*protocol.CredentialCreation, error) {
	user, err := b.users.Get(ctx, subjectID)
	if err != nil {
		return nil, wrap("begin registration", err)
	}
	if _, err := b.creds.Get(ctx, subjectID); err == nil {
		return nil, wrap("begin registration", ErrAlreadyRegistered)
	}

	options, session, err := b.web.BeginRegistration(&user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		}),
	)
	if err != nil {
		return nil, wrap("begin registration", err)
	}
	if err := b.challenges.Put(ctx, subjectID, session); err != nil {
		return nil, wrap("store challenge", err)
	}
	return options, nil
}

// FinishRegistration verifies the attestation and stores the credential. The
// pending challenge is consumed before verification, so a failed attempt
// cannot be replayed.
func (b *Broker) FinishRegistration(ctx context.Context, subjectID string, r *http.Request) (*webauthn.Credential, error) {
	session, err := b.challenges.Take(ctx, subjectID)
	if err != nil {
		return nil, wrap("finish registration", err)
	}
	user, err := b.users.Get(ctx, subjectID)
	if err != nil {
		return nil, wrap("finish registration", err)
	}

	cred, err := b.web.FinishRegistration(&user, *session, r)
	if err != nil {
		return nil, wrap("finish registration", ErrVerificationFailed)
	}
	if err := b.creds.Save(ctx, subjectID, *cred); err != nil {
		return nil, wrap("save credential", err)
	}
	return cred, nil
}

// BeginAuthentication issues an authentication challenge restricted to the
// subject's registered credential.
func (b *Broker) BeginAuthentication(ctx context.Context, subjectID string) (*protocol.CredentialAssertion, error) {
	cred, err := b.creds.Get(ctx, subjectID)
	if err != nil {
		return nil, wrap("begin authentication", err)
	}
	user, err := b.users.Get(ctx, subjectID)
	if err != nil {
		return nil, wrap("begin authentication", err)
	}
	user.Credentials = []webauthn.Credential{cred}

	options, session, err := b.web.BeginLogin(&user)
	if err != nil {
		return nil, wrap("begin authentication", err)
	}
	if err := b.challenges.Put(ctx, subjectID, session); err != nil {
		return nil, wrap("store challenge", err)
	}
	return options, nil
}

// FinishAuthentication verifies the assertion against the stored credential
// and challenge. The signature counter must strictly increase versus the
// stored counter; a regression fails hard as a cloned authenticator.
func (b *Broker) FinishAuthentication(ctx context.Context, subjectID string, r *http.Request) error {
	session, err := b.challenges.Take(ctx, subjectID)
	if err != nil {
		return wrap("finish authentication", err)
	}
	stored, err := b.creds.Get(ctx, subjectID)
	if err != nil {
		return wrap("finish authentication", err)
	}
	user, err := b.users.Get(ctx, subjectID)
	if err != nil {
		return wrap("finish authentication", err)
	}
	user.Credentials = []webauthn.Credential{stored}

	validated, err := b.web.FinishLogin(&user, *session, r)
	if err != nil {
		return wrap("finish authentication", ErrVerificationFailed)
	}

	if cloneSuspected(stored.Authenticator, validated.Authenticator) {
		return wrap("finish authentication", ErrClonedAuthenticator)
	}

	if err := b.creds.Update(ctx, subjectID, *validated); err != nil {
		return wrap("update credential", err)
	}
	return nil
}

// cloneSuspected reports whether an assertion's authenticator state indicates
// a cloned key. A counter of zero on both sides means the authenticator does
// not implement counters; anything else must move strictly forward.
func cloneSuspected(stored, validated webauthn.Authenticator) bool {
	if validated.CloneWarning {
		return true
	}
	return stored.SignCount > 0 && validated.SignCount <= stored.SignCount
}

// IsRegistered reports whether the subject holds a credential.
func (b *Broker) IsRegistered(ctx context.Context, subjectID string) (bool, error) {
	_, err := b.creds.Get(ctx, subjectID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNoCredential) {
		return false, nil
	}
	return false, err
}
