package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Department groups users and carries the module permissions that apply
// to everyone in it.
type Department struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"uniqueIndex;not null"`
	Description      string    `json:"description"`
	ManagerID        *uint     `json:"manager_id"`
	IsActive         bool      `json:"is_active" gorm:"not null;default:true"`
	DefaultRoleTitle string    `json:"default_role_title"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Department Model
func (Department) TableName() string {
	return "departments"
}

// ActionMap is the granular permission map of a module entry: action
// name to allowed flag. It is stored as a JSON blob.
type ActionMap map[string]bool

// Value implements driver.Valuer.
func (m ActionMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *ActionMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ActionMap", src)
	}
}

// GormDataType maps ActionMap columns to text.
func (ActionMap) GormDataType() string {
	return "text"
}

// WildcardModule grants access across all modules unless a specific
// entry overrides it.
const WildcardModule = "*"

// Legacy permission actions kept as coarse boolean columns. The
// granular ActionMap wins when it carries the requested key.
const (
	ActionView   = "view"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// DepartmentPermission is one module's permission entry for a
// department. One row per (department, module).
type DepartmentPermission struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	DepartmentID uint      `json:"department_id" gorm:"uniqueIndex:uniq_department_module;not null"`
	ModuleName   string    `json:"module_name" gorm:"uniqueIndex:uniq_department_module;not null"`
	CanView      bool      `json:"can_view" gorm:"not null;default:false"`
	CanEdit      bool      `json:"can_edit" gorm:"not null;default:false"`
	CanDelete    bool      `json:"can_delete" gorm:"not null;default:false"`
	Actions      ActionMap `json:"actions"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for DepartmentPermission Model
func (DepartmentPermission) TableName() string {
	return "department_permissions"
}

// Allows resolves an action against this entry: the granular map is
// consulted first, the legacy flags only when the map lacks the key.
func (p *DepartmentPermission) Allows(action string) bool {
	if v, ok := p.Actions[action]; ok {
		return v
	}
	switch action {
	case ActionView:
		return p.CanView
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	}
	return false
}
