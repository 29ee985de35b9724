package security

import (
	"testing"
	"time"

	"rentops-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	actor := domain.Actor{ID: 4, Email: "ada@rentops.test", Name: "Ada", Role: domain.RoleAdmin}

	token, err := tm.GenerateAccessToken(actor)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.Actor())
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_DefaultsRole(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateAccessToken(domain.Actor{Email: "tess@example.com"})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestTokenManager_ServiceToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateServiceToken("cronjob")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Actor().IsAdmin())
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateAccessToken(domain.Actor{Email: "tess@example.com"})
	require.NoError(t, err)

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-another-secret-xx", time.Hour)
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		m := tm.(*tokenManager)
		m.currentTime = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { m.currentTime = time.Now }()

		_, err := tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("None Algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, ActorClaims{Email: "x@example.com", Type: TokenTypeAccess})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tm.ValidateToken(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
