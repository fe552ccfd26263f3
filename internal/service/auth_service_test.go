package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	userRepo := &stubUserRepo{}
	svc := NewAuthService(userRepo, testJWTSecret, time.Hour)

	user, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Empty(t, user.PasswordHash)

	// Stored hash is not the plaintext password.
	stored, err := userRepo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)

	token, loggedIn, err := svc.Login(context.Background(), "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "run-tracker", claims.Issuer)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{}, testJWTSecret, time.Hour)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other Ada", "ada@example.com", "different-pass")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginFailures(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{}, testJWTSecret, time.Hour)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "ada@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
