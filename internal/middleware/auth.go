package middleware

import (
	"net/http"
	"strings"

	"sales-ops-api/internal/auth"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
)

const userKey = "current_user"

// RequireAuth validates the JWT in the Authorization header and loads
// the principal from the database, so role and department changes take
// effect immediately. Inactive accounts are rejected.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// WebSocket/browser clients cannot set custom headers on the
		// upgrade request; allow the token as a query param.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authorization token is required"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
			c.Abort()
			return
		}

		var user models.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "account not found"})
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "account is not active"})
			c.Abort()
			return
		}

		c.Set(userKey, &user)
		c.Next()
	}
}

// CurrentUser returns the authenticated principal set by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
