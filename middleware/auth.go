package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie names for the two bearer tokens.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// UserIDKey is the gin context key under which RequireAuth stores the
// authenticated user id.
const UserIDKey = "user_id"

// TokenValidator verifies an access token and returns its subject user id.
// Implemented by the auth service; declared here so the middleware does not
// depend on the logic layer.
type TokenValidator interface {
	ValidateAccess(token string) (string, error)
}

// RequireAuth gates a route group on a valid access-token cookie. On
// success the user id is stored in the gin context; on any failure the
// request ends with 401 before reaching the handler.
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AccessTokenCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		userID, err := validator.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
