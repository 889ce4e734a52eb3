package models

import "time"

// Notification is a per-recipient message produced by fan-out. Rows are
// never mutated except by the idempotent mark-read operation.
type Notification struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ToUserID    uint       `json:"to_user_id" gorm:"index;not null"`
	CreatedByID *uint      `json:"created_by_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message" gorm:"not null"`
	URL         string     `json:"url"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uint      `json:"entity_id"`
	IsRead      bool       `json:"is_read" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at"`
}

// TableName specifies the table name for Notification Model
func (Notification) TableName() string {
	return "notifications"
}
