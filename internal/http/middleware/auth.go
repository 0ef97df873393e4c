package middleware

import (
	"net/http"
	"strings"

	"taprealm/internal/service"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id (int64).
const UserIDKey = "user_id"

// JWT requires "Authorization: Bearer <token>" and stores the user id.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
