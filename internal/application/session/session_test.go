package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/atelier/internal/config"
)

func testService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	svc, err := NewService(config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "atelier_session",
		TTL:        ttl,
	})
	require.NoError(t, err)
	return svc
}

func TestSessionRoundTrip(t *testing.T) {
	svc := testService(t, time.Hour)

	token, err := svc.Issue(State{DatabaseID: "prod", PlanningID: 42})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	state, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "prod", state.DatabaseID)
	assert.Equal(t, int64(42), state.PlanningID)
}

func TestSessionExpired(t *testing.T) {
	svc := testService(t, -time.Minute)

	token, err := svc.Issue(State{DatabaseID: "prod"})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSessionTampered(t *testing.T) {
	svc := testService(t, time.Hour)

	token, err := svc.Issue(State{DatabaseID: "prod"})
	require.NoError(t, err)

	_, err = svc.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionWrongSecret(t *testing.T) {
	svc := testService(t, time.Hour)
	other, err := NewService(config.SessionConfig{
		Secret:     "ffffffffffffffffffffffffffffffff",
		CookieName: "atelier_session",
		TTL:        time.Hour,
	})
	require.NoError(t, err)

	token, err := svc.Issue(State{DatabaseID: "prod"})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEphemeralSecretGenerated(t *testing.T) {
	svc, err := NewService(config.SessionConfig{CookieName: "atelier_session", TTL: time.Hour})
	require.NoError(t, err)

	token, err := svc.Issue(State{DatabaseID: "prod", PlanningID: 7})
	require.NoError(t, err)

	state, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), state.PlanningID)
}
