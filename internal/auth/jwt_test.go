package auth

import (
	"Shortly-Backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.Auth {
	return &config.Auth{
		JWTSecret:           "test-secret",
		AccessTokenDuration: time.Hour,
		Issuer:              "shortly-test",
	}
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(testAuthConfig())

	token, err := svc.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "shortly-test", claims.Issuer)
}

func TestJWT_Expired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.AccessTokenDuration = -time.Minute
	svc := NewJWTService(cfg)

	token, err := svc.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	svc := NewJWTService(testAuthConfig())
	token, err := svc.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)

	other := NewJWTService(&config.Auth{
		JWTSecret:           "different-secret",
		AccessTokenDuration: time.Hour,
		Issuer:              "shortly-test",
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromBearer("Bearer abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromBearer("abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromBearer(""))
}

func TestPasswordService(t *testing.T) {
	svc := NewPasswordServiceWithCost(4)

	hash, err := svc.HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.NoError(t, svc.VerifyPassword(hash, "password123"))
	assert.Error(t, svc.VerifyPassword(hash, "wrong-password"))
}
