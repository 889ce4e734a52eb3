package models

import (
	"time"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusRequested  TaskStatus = "requested"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether the status is one of the recognized values.
// Unrecognized statuses are rejected at the API boundary.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRequested, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// SortRank orders priorities high before normal before low.
func (p TaskPriority) SortRank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	}
	return 1
}

// Recurrence is the repeat pattern of a recurring task.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Task represents a unit of work assigned inside a department.
type Task struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`

	DepartmentID *uint `json:"department_id" gorm:"index"`
	AssignedByID *uint `json:"assigned_by_id"`
	AssignedToID *uint `json:"assigned_to_id" gorm:"index"`
	CreatedByID  uint  `json:"created_by_id" gorm:"index;not null"`

	Status   TaskStatus   `json:"status" gorm:"not null;default:'pending'"`
	Priority TaskPriority `json:"priority" gorm:"not null;default:'normal'"`

	StartDate *Date `json:"start_date"`
	DueDate   *Date `json:"due_date"`

	IsRecurring bool       `json:"is_recurring" gorm:"not null;default:false"`
	Recurrence  Recurrence `json:"recurrence" gorm:"not null;default:'none'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// TaskComment is an immutable note on a task. Comments are only removed
// when the task itself is deleted.
type TaskComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TaskID    uint      `json:"task_id" gorm:"index;not null"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for TaskComment Model
func (TaskComment) TableName() string {
	return "task_comments"
}
