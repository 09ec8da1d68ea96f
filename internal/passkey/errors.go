package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for passkey ceremonies.
var (
	// ErrNoPendingChallenge is returned when no challenge is outstanding for
	// the subject. Covers both "never began" and "already consumed".
	ErrNoPendingChallenge = errors.New("no pending challenge")

	// ErrNoCredential is returned when the subject has no registered
	// credential.
	ErrNoCredential = errors.New("no registered credential")

	// ErrAlreadyRegistered is returned when the subject already holds a
	// credential and asks to register another.
	ErrAlreadyRegistered = errors.New("credential already registered")

	// ErrVerificationFailed is returned when an attestation or assertion does
	// not verify against the expected challenge, relying party or origin.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrClonedAuthenticator is returned when the assertion's signature
	// counter did not strictly increase, indicating a cloned authenticator.
	ErrClonedAuthenticator = errors.New("cloned authenticator detected")
)

// Error wraps a ceremony failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool { return errors.Is(e.Err, target) }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
