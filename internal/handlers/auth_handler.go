package handlers

import (
	"net/http"

	"sales-ops-api/internal/auth"
	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username and password are required"})
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid username or password"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid username or password"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "account is not active"})
		return
	}

	now := clock.Now()
	user.LastLogin = &now
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		middleware.Logger(c).WithError(err).Warn("failed to record last login")
	}

	token, err := auth.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"role":      user.Role,
			"full_name": user.FullName(),
		},
	})
}

// Logout handles POST /auth/logout. Tokens are stateless; this only
// records the audit event.
func Logout(c *gin.Context) {
	logActivity(c, "logout", "user logged out: "+middleware.CurrentUser(c).Username)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterRequest represents the self-registration payload
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// Register handles POST /auth/register. New accounts always get the
// plain user role; departments and roles are assigned by an admin.
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	db := database.GetDB()
	var count int64
	db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username is already taken"})
		return
	}
	db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "email is already in use"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to hash password"})
		return
	}
	user := models.User{
		Username:     req.Username,
		Email:        &req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user_id": user.ID})
}

// GetProfile handles GET /auth/profile. Admins and department managers
// may view another user inside their scope via ?user_id.
func GetProfile(c *gin.Context) {
	current := middleware.CurrentUser(c)
	db := database.GetDB()
	user := current

	if raw := c.Query("user_id"); raw != "" {
		viewID, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id is invalid"})
			return
		}
		sc, err := scope.Resolve(db, current)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
			return
		}
		if !sc.Contains(viewID) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "user is outside your scope"})
			return
		}
		var other models.User
		if err := db.First(&other, viewID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
			return
		}
		user = &other
	}

	var departmentName *string
	if user.DepartmentID != nil {
		var dept models.Department
		if err := db.First(&dept, *user.DepartmentID).Error; err == nil {
			departmentName = &dept.Name
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": gin.H{
			"id":                  user.ID,
			"username":            user.Username,
			"email":               user.Email,
			"role":                user.Role,
			"full_name":           user.FullName(),
			"first_name":          user.FirstName,
			"last_name":           user.LastName,
			"representative_code": user.RepresentativeCode,
			"phone":               user.Phone,
			"region":              user.Region,
			"department_id":       user.DepartmentID,
			"department_name":     departmentName,
			"is_active":           user.IsActive,
			"created_at":          user.CreatedAt,
			"last_login":          user.LastLogin,
		},
	})
}

// UpdateProfileRequest carries the self-service profile fields.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Region    *string `json:"region"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
}

// UpdateProfile handles PUT /auth/profile
func UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	db := database.GetDB()
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Region != nil {
		user.Region = *req.Region
	}
	if req.Username != nil {
		newUsername := *req.Username
		if newUsername == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username cannot be empty"})
			return
		}
		if newUsername != user.Username {
			var count int64
			db.Model(&models.User{}).Where("username = ?", newUsername).Count(&count)
			if count > 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username is already taken"})
				return
			}
			user.Username = newUsername
		}
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to hash password"})
			return
		}
		user.PasswordHash = hash
	}

	if err := db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update profile"})
		return
	}
	logActivity(c, "profile_update", "profile updated")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangePasswordRequest carries the password change payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /auth/change-password
func ChangePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "current and new password are required"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "current password is wrong"})
		return
	}
	if len(req.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "new password must be at least 6 characters"})
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to hash password"})
		return
	}
	if err := database.GetDB().Model(user).Update("password_hash", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to change password"})
		return
	}
	logActivity(c, "password_change", "password changed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
