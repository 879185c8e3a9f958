package jwtauth_test

import (
	"testing"
	"time"

	"github.com/Leopold1975/tickets_control/internal/pkg/jwtauth"
	"github.com/stretchr/testify/require"
)

const secret = "test_secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := jwtauth.GetToken("alice", []string{"me", "tickets"}, time.Hour, secret)
	require.NoError(t, err)

	claims, err := jwtauth.ValidateToken(token, secret)
	require.NoError(t, err)

	require.Equal(t, "alice", claims.Subject)
	require.ElementsMatch(t, []string{"me", "tickets"}, claims.Scopes)
	require.Empty(t, claims.Purpose)
	require.WithinDuration(t, time.Now().UTC().Add(time.Hour), claims.ExpiresAt.Time, time.Second*2)
}

func TestExpiredToken(t *testing.T) {
	token, err := jwtauth.GetToken("alice", nil, -time.Minute, secret)
	require.NoError(t, err)

	_, err = jwtauth.ValidateToken(token, secret)
	require.ErrorIs(t, err, jwtauth.ErrInvalidToken)
}

func TestWrongSecret(t *testing.T) {
	token, err := jwtauth.GetToken("alice", nil, time.Hour, secret)
	require.NoError(t, err)

	_, err = jwtauth.ValidateToken(token, "another_secret")
	require.ErrorIs(t, err, jwtauth.ErrInvalidToken)
}

func TestMalformedToken(t *testing.T) {
	_, err := jwtauth.ValidateToken("not.a.token", secret)
	require.ErrorIs(t, err, jwtauth.ErrInvalidToken)
}

func TestRecoveryTokenPurpose(t *testing.T) {
	token, err := jwtauth.GetRecoveryToken("alice@example.com", time.Hour, secret)
	require.NoError(t, err)

	claims, err := jwtauth.ValidateToken(token, secret)
	require.NoError(t, err)

	require.Equal(t, jwtauth.PurposeRecovery, claims.Purpose)
	require.Equal(t, "alice@example.com", claims.Subject)
}

func TestHasScope(t *testing.T) {
	claims := jwtauth.Claims{Scopes: []string{"me"}} //nolint:exhaustruct

	require.True(t, claims.HasScope("me"))
	require.False(t, claims.HasScope("tickets"))
}
