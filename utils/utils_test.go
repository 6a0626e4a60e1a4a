package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/middlewares"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokens(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 0, 0)
	userID := uuid.New()

	access, refresh, err := issuer.GenerateTokens(userID, []string{"customer"})
	require.NoError(t, err)

	claims, err := middlewares.ParseToken(issuer.Secret, access, middlewares.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, []string{"customer"}, claims.Roles)

	refreshClaims, err := issuer.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, refreshClaims.UserID)

	_, err = issuer.ParseRefreshToken(access)
	assert.Error(t, err, "access token must not refresh")
	_, err = middlewares.ParseToken(issuer.Secret, refresh, middlewares.AccessToken)
	assert.Error(t, err, "refresh token must not authenticate")
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Minute, time.Hour)
	issuer.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	access, refresh, err := issuer.GenerateTokens(uuid.New(), nil)
	require.NoError(t, err)
	_, err = middlewares.ParseToken(issuer.Secret, access, middlewares.AccessToken)
	assert.Error(t, err)
	_, err = issuer.ParseRefreshToken(refresh)
	assert.Error(t, err)
}

func TestWrongSecret(t *testing.T) {
	access, err := NewTokenIssuer([]byte("one"), 0, 0).GenerateAccessToken(uuid.New(), nil)
	require.NoError(t, err)
	_, err = middlewares.ParseToken([]byte("two"), access, middlewares.AccessToken)
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
