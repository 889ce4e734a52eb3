package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sales-ops-api/internal/database"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequireRoles rejects principals whose role is not in the allowed set.
// Must run after RequireAuth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			c.Abort()
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient role"})
		c.Abort()
	}
}

// RequirePermission gates a route on a department module permission.
// Admins always pass. Must run after RequireAuth.
func RequirePermission(module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			c.Abort()
			return
		}
		ok, err := HasPermission(database.GetDB(), user, module, action)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to check permissions"})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   fmt.Sprintf("%s permission required for module %s", action, module),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// HasPermission resolves a module/action permission for a user. Admins
// always pass; everyone else needs a department holding either a
// wildcard ("*") entry or a specific module entry that grants the
// action. The granular action map is consulted before the legacy
// view/edit/delete flags.
func HasPermission(db *gorm.DB, user *models.User, module, action string) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	if user.DepartmentID == nil {
		return false, nil
	}
	module = strings.ToLower(module)

	wildcard, err := findPermission(db, *user.DepartmentID, models.WildcardModule)
	if err != nil {
		return false, err
	}
	if wildcard != nil {
		if wildcard.Actions["all_access"] || wildcard.Allows(action) {
			return true, nil
		}
	}

	perm, err := findPermission(db, *user.DepartmentID, module)
	if err != nil {
		return false, err
	}
	if perm == nil {
		return false, nil
	}
	return perm.Allows(action), nil
}

func findPermission(db *gorm.DB, departmentID uint, module string) (*models.DepartmentPermission, error) {
	var perm models.DepartmentPermission
	err := db.Where("department_id = ? AND module_name = ?", departmentID, module).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}
