package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", "rollcall-test")

	signed, exp, err := svc.Issue(Claims{Lecture: true, TeacherID: "t-1", Subject: "Math"}, 10*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 2*time.Second)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.True(t, claims.Lecture)
	assert.Equal(t, "t-1", claims.TeacherID)
	assert.Equal(t, "Math", claims.Subject)
	assert.Equal(t, "rollcall-test", claims.Issuer)
	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestVerifyExpired(t *testing.T) {
	svc := NewService("test-secret", "rollcall-test")

	// Negative TTL puts the embedded expiry in the past while the signature
	// stays valid.
	signed, _, err := svc.Issue(Claims{Lecture: true}, -2*time.Second)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyTampered(t *testing.T) {
	svc := NewService("test-secret", "rollcall-test")

	signed, _, err := svc.Issue(Claims{Lecture: true, Subject: "Math"}, 10*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	// Flip a byte in the payload segment.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = svc.Verify(tampered)
	require.Error(t, err)
	assert.True(t, err == ErrSignatureInvalid || err == ErrMalformed, "got %v", err)
}

func TestVerifyWrongKey(t *testing.T) {
	issuerSvc := NewService("key-one", "rollcall-test")
	otherSvc := NewService("key-two", "rollcall-test")

	signed, _, err := issuerSvc.Issue(Claims{Lecture: true}, time.Minute)
	require.NoError(t, err)

	_, err = otherSvc.Verify(signed)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyForeignIssuer(t *testing.T) {
	issuerSvc := NewService("shared-key", "other-service")
	svc := NewService("shared-key", "rollcall-test")

	signed, _, err := issuerSvc.Issue(Claims{Lecture: true}, time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyMalformed(t *testing.T) {
	svc := NewService("test-secret", "rollcall-test")

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrMalformed)
}
