package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "card-auction-engine")
	accountID := uuid.New()

	token, expiresAt, err := svc.Generate(accountID, false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.False(t, claims.Admin)
}

func TestJWTTokenService_AdminClaim(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "card-auction-engine")

	token, _, err := svc.Generate(uuid.New(), true)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestJWTTokenService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTTokenService("secret-a", time.Hour, "card-auction-engine")
	verifier := NewJWTTokenService("secret-b", time.Hour, "card-auction-engine")

	token, _, err := issuer.Generate(uuid.New(), false)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsExpired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "card-auction-engine")

	token, _, err := svc.Generate(uuid.New(), false)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsGarbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "card-auction-engine")

	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}
