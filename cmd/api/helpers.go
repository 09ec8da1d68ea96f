package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/lecture"
	"rollcall/internal/passkey"
	"rollcall/internal/roster"
	"rollcall/internal/token"
)

// corsMiddleware handles cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// securityHeaders adds security-related headers
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

func newRateLimiter(perMinute int) gin.HandlerFunc {
	return httpmiddleware.NewTokenBucket(perMinute, perMinute).GinMiddleware()
}

// markError maps ledger failures to HTTP responses.
func markError(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrExpired):
		return http.StatusBadRequest, "qr expired"
	case errors.Is(err, attendance.ErrNotLectureToken):
		return http.StatusBadRequest, "not a lecture token"
	case errors.Is(err, lecture.ErrNotFound):
		return http.StatusNotFound, "lecture not found"
	case errors.Is(err, attendance.ErrDuplicateMark):
		return http.StatusConflict, "already marked"
	case errors.Is(err, token.ErrSignatureInvalid), errors.Is(err, token.ErrMalformed):
		return http.StatusBadRequest, "invalid token"
	default:
		// store or infra failure, not the client's fault
		return http.StatusInternalServerError, "mark failed"
	}
}

func passkeyError(err error) (int, string) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, passkey.ErrAlreadyRegistered):
		return http.StatusConflict, "biometric already registered"
	case errors.Is(err, passkey.ErrNoCredential):
		return http.StatusBadRequest, "no biometric registered"
	case errors.Is(err, passkey.ErrNoPendingChallenge):
		return http.StatusBadRequest, "no pending challenge"
	case errors.Is(err, passkey.ErrClonedAuthenticator):
		return http.StatusUnauthorized, "authenticator rejected"
	case errors.Is(err, passkey.ErrVerificationFailed):
		return http.StatusBadRequest, "verification failed"
	default:
		return http.StatusInternalServerError, "webauthn error"
	}
}

func recordBody(rec attendance.Record) ([]byte, error) {
	return json.Marshal(rec)
}

// sweepChallenges drops abandoned webauthn ceremonies so the map
// does not grow with users who scan the begin step and walk away.
func sweepChallenges(ctx context.Context, store *passkey.MemoryChallengeStore, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := store.Cleanup(); n > 0 {
				log.Printf("swept %d expired webauthn challenges", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
