package models

import "time"

// ActivityLog records a user-visible action for the admin audit view.
type ActivityLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	Action      string    `json:"action" gorm:"not null"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for ActivityLog Model
func (ActivityLog) TableName() string {
	return "activity_logs"
}
