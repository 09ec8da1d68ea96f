package passkey

import (
	"context"
	"sync"

	"github.com/go-webauthn/webauthn/webauthn"
)

// CredentialStore persists the one credential a subject registers.
type CredentialStore interface {
	// Save stores a subject's credential. Returns ErrAlreadyRegistered if one
	// exists.
	Save(ctx context.Context, subjectID string, cred webauthn.Credential) error

	// Get returns the subject's credential or ErrNoCredential.
	Get(ctx context.Context, subjectID string) (webauthn.Credential, error)

	// Update replaces the stored credential (sign counter advance).
	Update(ctx context.Context, subjectID string, cred webauthn.Credential) error
}

// MemoryCredentialStore is a map-backed CredentialStore for dev and testing.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]webauthn.Credential
}

// NewMemoryCredentialStore creates an empty in-memory store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[string]webauthn.Credential)}
}

// Save stores a credential, refusing a second registration.
func (s *MemoryCredentialStore) Save(ctx context.Context, subjectID string, cred webauthn.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[subjectID]; ok {
		return ErrAlreadyRegistered
	}
	s.creds[subjectID] = cred
	return nil
}

// Get returns the subject's credential.
func (s *MemoryCredentialStore) Get(ctx context.Context, subjectID string) (webauthn.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[subjectID]
	if !ok {
		return webauthn.Credential{}, ErrNoCredential
	}
	return cred, nil
}

// Update replaces the stored credential.
func (s *MemoryCredentialStore) Update(ctx context.Context, subjectID string, cred webauthn.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[subjectID]; !ok {
		return ErrNoCredential
	}
	s.creds[subjectID] = cred
	return nil
}
