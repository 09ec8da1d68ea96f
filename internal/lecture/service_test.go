package lecture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/token"
)

func TestCreateBindsTokenExpiry(t *testing.T) {
	ctx := context.Background()
	tokens := token.NewService("test-secret", "rollcall-test")
	svc := NewService(tokens, NewMemoryStore(), 10*time.Minute)

	lec, err := svc.Create(ctx, "teacher-1", "Math", 10*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, lec.ID)
	require.NotEmpty(t, lec.QRToken)

	claims, err := tokens.Verify(lec.QRToken)
	require.NoError(t, err)
	assert.True(t, claims.Lecture)
	assert.Equal(t, "teacher-1", claims.TeacherID)
	assert.Equal(t, "Math", claims.Subject)

	// Stored expiry must equal the token's embedded expiry, no skew.
	assert.True(t, lec.ExpiresAt.Equal(claims.ExpiresAt.Time))
}

func TestCreateRequiresTeacherAndSubject(t *testing.T) {
	tokens := token.NewService("test-secret", "rollcall-test")
	svc := NewService(tokens, NewMemoryStore(), 10*time.Minute)

	_, err := svc.Create(context.Background(), "", "Math", time.Minute)
	assert.Error(t, err)
	_, err = svc.Create(context.Background(), "teacher-1", "", time.Minute)
	assert.Error(t, err)
}

func TestGetAndGetByToken(t *testing.T) {
	ctx := context.Background()
	tokens := token.NewService("test-secret", "rollcall-test")
	svc := NewService(tokens, NewMemoryStore(), 10*time.Minute)

	lec, err := svc.Create(ctx, "teacher-1", "Math", time.Minute)
	require.NoError(t, err)

	got, err := svc.Get(ctx, lec.ID)
	require.NoError(t, err)
	assert.Equal(t, lec.ID, got.ID)

	byToken, err := svc.GetByToken(ctx, lec.QRToken)
	require.NoError(t, err)
	assert.Equal(t, lec.ID, byToken.ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
