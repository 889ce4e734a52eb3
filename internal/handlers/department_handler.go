package handlers

import (
	"net/http"
	"strings"

	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetDepartments handles GET /auth/departments (admin)
func GetDepartments(c *gin.Context) {
	db := database.GetDB()
	var departments []models.Department
	if err := db.Order("name asc").Find(&departments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch departments"})
		return
	}

	resp := make([]gin.H, 0, len(departments))
	for i := range departments {
		dept := &departments[i]
		var managerName *string
		if dept.ManagerID != nil {
			var manager models.User
			if err := db.First(&manager, *dept.ManagerID).Error; err == nil {
				name := manager.FullName()
				managerName = &name
			}
		}
		var userCount int64
		db.Model(&models.User{}).Where("department_id = ?", dept.ID).Count(&userCount)
		resp = append(resp, gin.H{
			"id":                 dept.ID,
			"name":               dept.Name,
			"description":        dept.Description,
			"default_role_title": dept.DefaultRoleTitle,
			"manager_id":         dept.ManagerID,
			"manager_name":       managerName,
			"is_active":          dept.IsActive,
			"user_count":         userCount,
			"created_at":         dept.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "departments": resp})
}

// ListSimpleDepartments handles GET /api/departments/simple
//
// Lightweight id/name list for frontend pickers. Admins see every
// department, everyone else only their own.
func ListSimpleDepartments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	q := db.Order("name asc")
	if !user.IsAdmin() {
		if user.DepartmentID == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "departments": []gin.H{}})
			return
		}
		q = q.Where("id = ?", *user.DepartmentID)
	}
	var departments []models.Department
	if err := q.Find(&departments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch departments"})
		return
	}
	resp := make([]gin.H, 0, len(departments))
	for i := range departments {
		resp = append(resp, gin.H{"id": departments[i].ID, "name": departments[i].Name})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "departments": resp})
}

// GetDepartmentUsers handles GET /auth/departments/:id/users (admin)
func GetDepartmentUsers(c *gin.Context) {
	deptID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department id is invalid"})
		return
	}
	db := database.GetDB()
	var dept models.Department
	if err := db.First(&dept, deptID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "department not found"})
		return
	}
	var users []models.User
	if err := db.Where("department_id = ?", deptID).Order("first_name asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch users"})
		return
	}
	resp := make([]gin.H, 0, len(users))
	for i := range users {
		u := &users[i]
		resp = append(resp, gin.H{
			"id":                  u.ID,
			"username":            u.Username,
			"full_name":           u.FullName(),
			"email":               u.Email,
			"representative_code": u.RepresentativeCode,
			"role":                u.Role,
			"department_role":     u.DepartmentRole,
			"is_active":           u.IsActive,
			"last_login":          u.LastLogin,
			"created_at":          u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"department": gin.H{"id": dept.ID, "name": dept.Name},
		"users":      resp,
	})
}

// DepartmentRequest carries create/update fields for a department.
type DepartmentRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	DefaultRoleTitle *string `json:"default_role_title"`
	ManagerID        *uint   `json:"manager_id"`
	IsActive         *bool   `json:"is_active"`
}

// CreateDepartment handles POST /auth/departments (admin)
func CreateDepartment(c *gin.Context) {
	var req DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.Name == nil || *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department name is required"})
		return
	}

	db := database.GetDB()
	var count int64
	db.Model(&models.Department{}).Where("name = ?", *req.Name).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department name is already in use"})
		return
	}

	dept := models.Department{Name: *req.Name, IsActive: true}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.DefaultRoleTitle != nil {
		dept.DefaultRoleTitle = *req.DefaultRoleTitle
	}
	dept.ManagerID = req.ManagerID

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dept).Error; err != nil {
			return err
		}
		if dept.ManagerID != nil {
			return promoteManager(tx, *dept.ManagerID, dept.ID)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create department"})
		return
	}

	logActivity(c, "department_create", "department created: "+dept.Name)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"department": gin.H{
			"id":          dept.ID,
			"name":        dept.Name,
			"description": dept.Description,
			"manager_id":  dept.ManagerID,
		},
	})
}

// UpdateDepartment handles PUT /auth/departments/:id (admin)
func UpdateDepartment(c *gin.Context) {
	deptID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department id is invalid"})
		return
	}
	db := database.GetDB()
	var dept models.Department
	if err := db.First(&dept, deptID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "department not found"})
		return
	}

	var req DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.Name != nil && *req.Name != dept.Name {
		var count int64
		db.Model(&models.Department{}).Where("name = ?", *req.Name).Count(&count)
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department name is already in use"})
			return
		}
		dept.Name = *req.Name
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.DefaultRoleTitle != nil {
		dept.DefaultRoleTitle = *req.DefaultRoleTitle
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	oldManagerID := dept.ManagerID
	managerChanged := false
	if req.ManagerID != nil {
		if *req.ManagerID == 0 {
			dept.ManagerID = nil
		} else {
			dept.ManagerID = req.ManagerID
		}
		managerChanged = true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&dept).Error; err != nil {
			return err
		}
		if !managerChanged {
			return nil
		}
		// Demote the previous manager when they no longer manage any
		// department, then promote the new one.
		if oldManagerID != nil && (dept.ManagerID == nil || *oldManagerID != *dept.ManagerID) {
			if err := demoteManagerIfIdle(tx, *oldManagerID, dept.ID); err != nil {
				return err
			}
		}
		if dept.ManagerID != nil {
			return promoteManager(tx, *dept.ManagerID, dept.ID)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update department"})
		return
	}

	logActivity(c, "department_update", "department updated: "+dept.Name)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// promoteManager gives the user the department_manager role and moves
// them into the department. Admins keep their role.
func promoteManager(tx *gorm.DB, userID, deptID uint) error {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}
	if user.IsAdmin() {
		return nil
	}
	updates := map[string]any{"department_id": deptID}
	if user.Role != models.RoleDepartmentManager {
		updates["role"] = models.RoleDepartmentManager
	}
	return tx.Model(&user).Updates(updates).Error
}

func demoteManagerIfIdle(tx *gorm.DB, userID, exceptDeptID uint) error {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}
	if user.Role != models.RoleDepartmentManager {
		return nil
	}
	var others int64
	if err := tx.Model(&models.Department{}).
		Where("manager_id = ? AND id <> ?", userID, exceptDeptID).
		Count(&others).Error; err != nil {
		return err
	}
	if others == 0 {
		return tx.Model(&user).Update("role", models.RoleUser).Error
	}
	return nil
}

// GetDepartmentPermissions handles GET /auth/departments/:id/permissions (admin)
func GetDepartmentPermissions(c *gin.Context) {
	deptID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department id is invalid"})
		return
	}
	db := database.GetDB()
	var dept models.Department
	if err := db.First(&dept, deptID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "department not found"})
		return
	}
	var permissions []models.DepartmentPermission
	if err := db.Where("department_id = ?", deptID).Find(&permissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch permissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "permissions": permissions})
}

// PermissionEntry is one module permission in the replace-all payload.
type PermissionEntry struct {
	ModuleName string           `json:"module_name" binding:"required"`
	CanView    bool             `json:"can_view"`
	CanEdit    bool             `json:"can_edit"`
	CanDelete  bool             `json:"can_delete"`
	Actions    models.ActionMap `json:"actions"`
}

// SetDepartmentPermissionsRequest replaces a department's permissions.
type SetDepartmentPermissionsRequest struct {
	Permissions []PermissionEntry `json:"permissions"`
}

// SetDepartmentPermissions handles PUT /auth/departments/:id/permissions
// (admin). The payload replaces the department's full permission set.
func SetDepartmentPermissions(c *gin.Context) {
	deptID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department id is invalid"})
		return
	}
	db := database.GetDB()
	var dept models.Department
	if err := db.First(&dept, deptID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "department not found"})
		return
	}

	var req SetDepartmentPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("department_id = ?", deptID).Delete(&models.DepartmentPermission{}).Error; err != nil {
			return err
		}
		for _, entry := range req.Permissions {
			perm := models.DepartmentPermission{
				DepartmentID: deptID,
				ModuleName:   strings.ToLower(entry.ModuleName),
				CanView:      entry.CanView,
				CanEdit:      entry.CanEdit,
				CanDelete:    entry.CanDelete,
				Actions:      entry.Actions,
			}
			if err := tx.Create(&perm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update permissions"})
		return
	}

	logActivity(c, "department_permissions_update", "permissions updated: "+dept.Name)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
