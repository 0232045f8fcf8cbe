package middleware

import (
	"net/http"
	"strings"

	"github.com/commerce/backend/internal/infrastructure/auth"
	"github.com/commerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Actor context keys
const (
	ActorClaimsKey     = "actor_claims"
	ActorCustomerIDKey = "actor_customer_id"
	AuthHeaderKey      = "Authorization"
	BearerPrefix       = "Bearer "
)

// ActorConfig holds configuration for the actor middleware
type ActorConfig struct {
	// JWTService validates bearer tokens
	JWTService *auth.JWTService
	// AllowHeaderFallback accepts X-Customer-ID without a token.
	// Development only; never enable in production.
	AllowHeaderFallback bool
	// SkipPaths are paths that don't require an actor
	SkipPaths []string
}

// DefaultActorConfig returns default actor middleware configuration
func DefaultActorConfig(jwtService *auth.JWTService) ActorConfig {
	return ActorConfig{
		JWTService:          jwtService,
		AllowHeaderFallback: false,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
		},
	}
}

// Actor resolves the acting customer from the bearer token and stores
// it on the context. Ownership checks downstream run against this
// identity.
func Actor(cfg ActorConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.AllowHeaderFallback {
				if customerID := c.GetHeader("X-Customer-ID"); customerID != "" {
					c.Set(ActorCustomerIDKey, customerID)
					c.Next()
					return
				}
			}
			abortUnauthorized(c, "Missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(ActorClaimsKey, claims)
		c.Set(ActorCustomerIDKey, claims.CustomerID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString(RequestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID("UNAUTHORIZED", message, requestID))
}

// GetActorCustomerID returns the acting customer ID from the context
func GetActorCustomerID(c *gin.Context) string {
	return c.GetString(ActorCustomerIDKey)
}

// GetActorClaims returns the validated claims from the context, or nil
func GetActorClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ActorClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
