package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	token, err := Issue("secret", "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestVerify_DefaultsToCustomer(t *testing.T) {
	token, err := Issue("secret", "user-2", "", time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, p.Role)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier("secret")

	wrongKey, _ := Issue("other", "user-1", RoleCustomer, time.Hour)
	_, err := v.Verify(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := Issue("secret", "user-1", RoleCustomer, -time.Minute)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleAdmin}).SignedString([]byte("secret"))
	_, err = v.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
