package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

const ContextUserID = "user_id"

// IssueToken signs a bearer token for the given identity.
func IssueToken(secret string, ttl time.Duration, userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Auth validates the bearer token, stashes the caller's id in the context,
// and refreshes last_seen (the per-request touch the profile page shows).
func Auth(secret string, identity service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			return
		}
		claims := token.Claims.(*jwt.RegisteredClaims)
		c.Set(ContextUserID, claims.Subject)
		_ = identity.TouchLastSeen(c.Request.Context(), claims.Subject)
		c.Next()
	}
}

// CallerID returns the authenticated identity id set by Auth.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
