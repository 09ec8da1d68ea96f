// Package token issues and verifies the signed, expiring tokens embedded in
// lecture QR codes. Tokens are self-contained: expiry lives inside the signed
// payload, so any holder of the signing key can verify a scanned code without
// a session-store round trip.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification outcomes. Callers branch on these: an expired lecture code is
// reported to the student differently from a tampered one.
var (
	// ErrExpired means the signature checked out but the token is past its
	// embedded expiry.
	ErrExpired = errors.New("token expired")

	// ErrSignatureInvalid means the token parsed but was not signed by this
	// service's key, uses the wrong algorithm, or names a foreign issuer.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrMalformed means the string is not a parseable token at all.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the payload carried by a lecture QR token.
type Claims struct {
	Lecture   bool   `json:"lecture,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single HS256 key.
type Service struct {
	key    []byte
	issuer string
}

// NewService creates a token service. The key is the server-held signing
// secret; issuer is stamped into and checked on every token.
func NewService(key, issuer string) *Service {
	return &Service{key: []byte(key), issuer: issuer}
}

// Issue signs claims with expiry now+ttl and returns the compact token along
// with the exact expiry instant embedded in it. Callers persisting a copy of
// the expiry must use the returned instant, never recompute it.
func (s *Service) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates the signature and expiry of a token and returns its
// claims. Failures are one of ErrExpired, ErrSignatureInvalid or ErrMalformed.
func (s *Service) Verify(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrSignatureInvalid
		}
		return s.key, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrSignatureInvalid
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrSignatureInvalid
	}
	return *claims, nil
}
