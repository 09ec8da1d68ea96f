// Package roster is the user store the core trusts for identity and role.
package roster

import (
	"context"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"rollcall/internal/auth"
)

// ErrNotFound is returned when no user matches the id.
var ErrNotFound = errors.New("user not found")

// User is a registered person. It satisfies webauthn.User so the passkey
// broker can run ceremonies against it; Credentials is populated by the
// broker, not persisted here.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	Credentials []webauthn.Credential `json:"-"`
}

// WebAuthnID returns the user handle bound into WebAuthn ceremonies.
func (u *User) WebAuthnID() []byte { return []byte(u.ID) }

// WebAuthnName returns the account identifier shown by authenticators.
func (u *User) WebAuthnName() string { return u.Email }

// WebAuthnDisplayName returns the human-readable name.
func (u *User) WebAuthnDisplayName() string { return u.Name }

// WebAuthnIcon is deprecated in the spec; required by webauthn.User in v0.10.x.
func (u *User) WebAuthnIcon() string { return "" }

// WebAuthnCredentials returns the credentials attached for this ceremony.
func (u *User) WebAuthnCredentials() []webauthn.Credential { return u.Credentials }

// Store persists users.
type Store interface {
	Get(ctx context.Context, id string) (User, error)
	Upsert(ctx context.Context, u User) error
}
