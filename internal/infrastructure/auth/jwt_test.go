package auth

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-that-is-long-enough!",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "commerce-backend",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	t.Run("round-trips customer claims", func(t *testing.T) {
		service := newTestJWTService()
		customerID := uuid.New()

		token, expiresAt, err := service.GenerateAccessToken(customerID, "customer")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

		claims, err := service.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, customerID.String(), claims.CustomerID)
		assert.Equal(t, "customer", claims.Role)
		assert.Equal(t, "commerce-backend", claims.Issuer)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		service := newTestJWTService()
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-that-is-also-long",
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "commerce-backend",
		})

		token, _, err := other.GenerateAccessToken(uuid.New(), "")
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		service := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-that-is-long-enough!",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "commerce-backend",
		})

		token, _, err := service.GenerateAccessToken(uuid.New(), "")
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		service := newTestJWTService()

		_, err := service.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
