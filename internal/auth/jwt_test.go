package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func TestIssueParseRoundTrip(t *testing.T) {
	pair, err := Issue("user-1", RoleTeacher, "rollcall", testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := Parse(pair.AccessToken, testKey, "rollcall")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, RoleTeacher, claims.Role)
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "rollcall", testKey, time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "other-key", "rollcall")
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "someone-else", testKey, time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, testKey, "rollcall")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "rollcall", testKey, -2*time.Second, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, testKey, "rollcall")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"student", "teacher", "admin"} {
		role, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), role)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleStudent.Allows(RoleStudent))
	assert.False(t, RoleStudent.Allows(RoleTeacher))
	assert.True(t, RoleTeacher.Allows(RoleTeacher))
	assert.False(t, RoleTeacher.Allows(RoleStudent))
	assert.True(t, RoleAdmin.Allows(RoleStudent))
	assert.True(t, RoleAdmin.Allows(RoleTeacher))
	assert.True(t, RoleAdmin.Allows(RoleAdmin))
}
