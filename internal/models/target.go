package models

import "time"

// Target is the monthly sales target of a user: one row per
// (user, year, month).
type Target struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex:uniq_target_month;not null"`
	Year         int       `json:"year" gorm:"uniqueIndex:uniq_target_month;not null"`
	Month        int       `json:"month" gorm:"uniqueIndex:uniq_target_month;not null"`
	TargetAmount float64   `json:"target_amount" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for Target Model
func (Target) TableName() string {
	return "targets"
}
