package models

import "time"

// Planning is a representative's daily log: one row per user per day.
type Planning struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	RepresentativeID    uint      `json:"representative_id" gorm:"uniqueIndex:uniq_planning_day;not null"`
	Date                Date      `json:"date" gorm:"uniqueIndex:uniq_planning_day;not null"`
	YesterdayActivities string    `json:"yesterday_activities"`
	TodayPlan           string    `json:"today_plan"`
	Challenges          string    `json:"challenges"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for Planning Model
func (Planning) TableName() string {
	return "plannings"
}

// Editable reports whether the plan is still inside its 24-hour edit
// window, measured from creation.
func (p *Planning) Editable(now time.Time) bool {
	return now.Sub(p.CreatedAt) < 24*time.Hour
}

// PlanningSnapshot is the append-only audit trail: every successful
// plan write adds one snapshot row.
type PlanningSnapshot struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	RepresentativeID    uint      `json:"representative_id" gorm:"index;not null"`
	Date                Date      `json:"date" gorm:"not null"`
	YesterdayActivities string    `json:"yesterday_activities"`
	TodayPlan           string    `json:"today_plan"`
	Challenges          string    `json:"challenges"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName specifies the table name for PlanningSnapshot Model
func (PlanningSnapshot) TableName() string {
	return "planning_snapshots"
}
