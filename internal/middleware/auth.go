package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errBadAuthHeader     = errors.New("invalid authorization header format")
)

// TokenClaims holds the identity carried by a validated token.
type TokenClaims struct {
	UserID uuid.UUID
}

// TokenValidator is an interface for validating JWT tokens.
type TokenValidator interface {
	ValidateToken(token string) (*TokenClaims, error)
}

// AuthRequired validates the Bearer token and aborts with 401 when it is
// missing or invalid.
func AuthRequired(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, validator)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// AuthOptional sets the user identity when a valid Bearer token is present
// and lets anonymous requests through untouched.
func AuthOptional(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := claimsFromHeader(c, validator); err == nil {
			c.Set(userIDKey, claims.UserID)
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func claimsFromHeader(c *gin.Context, validator TokenValidator) (*TokenClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errBadAuthHeader
	}
	return validator.ValidateToken(parts[1])
}
