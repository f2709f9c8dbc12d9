package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", time.Hour)
	u := &domain.User{
		ID:         12,
		Email:      "dana@example.com",
		FullName:   "Dana Ops",
		Role:       domain.RoleDispatcher,
		VentureIDs: []int64{1, 3},
		OfficeIDs:  []int64{7},
	}

	token, err := svc.GenerateToken(u)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), session.ID)
	assert.Equal(t, "dana@example.com", session.Email)
	assert.Equal(t, "Dana Ops", session.FullName)
	assert.Equal(t, domain.RoleDispatcher, session.Role)
	assert.Equal(t, []int64{1, 3}, session.VentureIDs)
	assert.Equal(t, []int64{7}, session.OfficeIDs)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	t.Parallel()
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.GenerateToken(&domain.User{ID: 1, Role: domain.RoleCSR})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenExpiredRejected(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.GenerateToken(&domain.User{ID: 1, Role: domain.RoleCSR})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", time.Hour)
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
