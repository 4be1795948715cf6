package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("s1", RoleStudent, "mess-server", "secret", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := Parse(token, "secret", "mess-server")
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("s1", RoleStaff, "mess-server", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret", "mess-server")
	assert.Error(t, err)
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	token, _, err := Issue("s1", RoleStaff, "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "mess-server")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("s1", RoleStudent, "mess-server", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "mess-server")
	assert.Error(t, err)
}
