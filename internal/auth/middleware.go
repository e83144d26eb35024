package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lab_booking/internal/response"
)

// Context keys set by Middleware.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// Middleware checks the access token and stores the user id and role in the
// gin context.
func Middleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "Authorization required",
			})
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole must run after Middleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
