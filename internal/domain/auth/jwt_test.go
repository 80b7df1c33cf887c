package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, exp, err := svc.GenerateAccessToken("owner-1", "a@b.c", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", user.OwnerID)
	assert.Equal(t, "a@b.c", user.Email)
	assert.Equal(t, []string{"admin"}, user.Roles)
}

func TestJWT_SubjectFallback(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   "owner-from-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	user, err := NewJWTService(cfg).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-from-sub", user.OwnerID)
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	token, _, err := svc.GenerateAccessToken("owner-1", "")
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("other")).ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	otherIssuer := DefaultJWTConfig("secret")
	otherIssuer.Issuer = "someone-else"
	_, err = NewJWTService(otherIssuer).ValidateToken(token)
	assert.Error(t, err, "wrong issuer")

	expired := NewJWTService(DefaultJWTConfig("secret"))
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	noOwner, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: "bizledger", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(noOwner)
	assert.ErrorContains(t, err, "no owner")
}
