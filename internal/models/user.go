package models

import (
	"strings"
	"time"
)

// UserRole is the system-wide role of a user.
type UserRole string

const (
	RoleAdmin             UserRole = "admin"
	RoleDepartmentManager UserRole = "department_manager"
	RoleUser              UserRole = "user"
)

// Valid reports whether the role is one of the recognized system roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDepartmentManager, RoleUser:
		return true
	}
	return false
}

// User represents an account in the system. Sales representatives are
// plain users attached to a department.
type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null"`
	Email        *string  `json:"email" gorm:"uniqueIndex"`
	PasswordHash string   `json:"-" gorm:"not null"`
	Role         UserRole `json:"role" gorm:"not null;default:'user'"`
	FirstName    string   `json:"first_name" gorm:"not null"`
	LastName     string   `json:"last_name" gorm:"not null"`
	IsActive     bool     `json:"is_active" gorm:"not null;default:true"`

	DepartmentID   *uint  `json:"department_id" gorm:"index"`
	DepartmentRole string `json:"department_role"`

	RepresentativeCode *string `json:"representative_code" gorm:"uniqueIndex"`
	Phone              string  `json:"phone"`
	Region             string  `json:"region"`

	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsDepartmentManager() bool {
	return u.Role == RoleDepartmentManager
}
