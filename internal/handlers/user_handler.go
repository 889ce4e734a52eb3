package handlers

import (
	"fmt"
	"net/http"

	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetAllUsers handles GET /auth/users (admin)
func GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := database.GetDB().Order("id asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch users"})
		return
	}

	resp := make([]gin.H, 0, len(users))
	for i := range users {
		u := &users[i]
		resp = append(resp, gin.H{
			"id":              u.ID,
			"username":        u.Username,
			"email":           u.Email,
			"role":            u.Role,
			"full_name":       u.FullName(),
			"is_active":       u.IsActive,
			"department_id":   u.DepartmentID,
			"department_role": u.DepartmentRole,
			"created_at":      u.CreatedAt,
			"last_login":      u.LastLogin,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": resp, "count": len(resp)})
}

// UpdateUserRequest carries the admin-editable user fields.
type UpdateUserRequest struct {
	Role               *models.UserRole `json:"role"`
	IsActive           *bool            `json:"is_active"`
	RepresentativeCode *string          `json:"representative_code"`
	DepartmentID       *uint            `json:"department_id"`
	DepartmentRole     *string          `json:"department_role"`
}

// UpdateUser handles PUT /auth/users/:id (admin)
func UpdateUser(c *gin.Context) {
	userID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user id is invalid"})
		return
	}
	db := database.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.Role != nil {
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid system role"})
			return
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.RepresentativeCode != nil {
		if *req.RepresentativeCode == "" {
			user.RepresentativeCode = nil
		} else {
			user.RepresentativeCode = req.RepresentativeCode
		}
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == 0 {
			user.DepartmentID = nil
		} else {
			var dept models.Department
			if err := db.First(&dept, *req.DepartmentID).Error; err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department not found"})
				return
			}
			user.DepartmentID = req.DepartmentID
		}
	}
	if req.DepartmentRole != nil {
		user.DepartmentRole = *req.DepartmentRole
	}

	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update user"})
		return
	}
	logActivity(c, "user_update", "user updated: "+user.Username)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteUser handles DELETE /auth/users/:id (admin).
//
// Default mode is a soft delete: the account is deactivated and its
// identifying fields anonymized, leaving dependent records intact.
// mode=hard removes the row, but only when the caller disambiguates
// what happens to dependent records: either ?reassign_to=<user_id>
// moves them, or ?purge=true cascades the deletion. The last active
// admin can never be deleted.
func DeleteUser(c *gin.Context) {
	current := middleware.CurrentUser(c)
	userID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user id is invalid"})
		return
	}
	if userID == current.ID {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "you cannot delete yourself"})
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return
	}

	if user.IsAdmin() && user.IsActive {
		var activeAdmins int64
		db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleAdmin, true).Count(&activeAdmins)
		if activeAdmins <= 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cannot delete the last active admin"})
			return
		}
	}

	if c.DefaultQuery("mode", "soft") != "hard" {
		softDeleteUser(c, db, &user)
		return
	}

	purge := c.Query("purge") == "true"
	var reassignTo uint
	if raw := c.Query("reassign_to"); raw != "" {
		id, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "reassign_to is invalid"})
			return
		}
		var target models.User
		if err := db.First(&target, id).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "reassign target not found"})
			return
		}
		reassignTo = id
	}

	deps, err := countDependents(db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to inspect dependent records"})
		return
	}
	if deps > 0 && !purge && reassignTo == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("user has %d dependent records; pass reassign_to or purge=true", deps),
		})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if reassignTo != 0 {
			if err := reassignDependents(tx, user.ID, reassignTo); err != nil {
				return err
			}
		} else if purge {
			if err := purgeDependents(tx, user.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete user"})
		return
	}
	logActivity(c, "user_delete", fmt.Sprintf("user hard-deleted: %s (purge=%v, reassign_to=%d)", user.Username, purge, reassignTo))
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": "hard"})
}

func softDeleteUser(c *gin.Context, db *gorm.DB, user *models.User) {
	user.IsActive = false
	user.Username = fmt.Sprintf("%s_deleted_%d", user.Username, user.ID)
	user.Email = nil
	user.RepresentativeCode = nil
	user.Phone = ""
	if err := db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete user"})
		return
	}
	logActivity(c, "user_delete", "user soft-deleted: "+user.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": "soft"})
}

// countDependents counts the records that reference the user and would
// be orphaned by a hard delete.
func countDependents(db *gorm.DB, userID uint) (int64, error) {
	var total int64
	counts := []struct {
		model any
		where string
		args  []any
	}{
		{&models.Task{}, "assigned_to_id = ? OR created_by_id = ?", []any{userID, userID}},
		{&models.TaskComment{}, "user_id = ?", []any{userID}},
		{&models.Sale{}, "representative_id = ?", []any{userID}},
		{&models.Return{}, "representative_id = ?", []any{userID}},
		{&models.Planning{}, "representative_id = ?", []any{userID}},
		{&models.Target{}, "user_id = ?", []any{userID}},
	}
	for _, q := range counts {
		var n int64
		if err := db.Model(q.model).Where(q.where, q.args...).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func reassignDependents(tx *gorm.DB, from, to uint) error {
	steps := []struct {
		model  any
		column string
	}{
		{&models.Task{}, "assigned_to_id"},
		{&models.Task{}, "created_by_id"},
		{&models.Task{}, "assigned_by_id"},
		{&models.TaskComment{}, "user_id"},
		{&models.Sale{}, "representative_id"},
		{&models.Return{}, "representative_id"},
		{&models.Target{}, "user_id"},
	}
	for _, s := range steps {
		if err := tx.Model(s.model).Where(s.column+" = ?", from).Update(s.column, to).Error; err != nil {
			return err
		}
	}
	// Plans stay personal: they are the user's own daily log, so they
	// are removed rather than attributed to someone else.
	if err := tx.Where("representative_id = ?", from).Delete(&models.Planning{}).Error; err != nil {
		return err
	}
	return tx.Where("representative_id = ?", from).Delete(&models.PlanningSnapshot{}).Error
}

func purgeDependents(tx *gorm.DB, userID uint) error {
	var taskIDs []uint
	if err := tx.Model(&models.Task{}).
		Where("assigned_to_id = ? OR created_by_id = ?", userID, userID).
		Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	if len(taskIDs) > 0 {
		if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}
	}
	deletes := []struct {
		model any
		where string
	}{
		{&models.TaskComment{}, "user_id = ?"},
		{&models.Sale{}, "representative_id = ?"},
		{&models.Return{}, "representative_id = ?"},
		{&models.Planning{}, "representative_id = ?"},
		{&models.PlanningSnapshot{}, "representative_id = ?"},
		{&models.Target{}, "user_id = ?"},
		{&models.Notification{}, "to_user_id = ?"},
	}
	for _, d := range deletes {
		if err := tx.Where(d.where, userID).Delete(d.model).Error; err != nil {
			return err
		}
	}
	return nil
}
