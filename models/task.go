package models

import "time"

type TaskStatus string

const (
	TaskOpen          TaskStatus = "open"
	TaskInDevelopment TaskStatus = "in_development"
	TaskInTest        TaskStatus = "in_test"
	TaskClosed        TaskStatus = "closed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskOpen, TaskInDevelopment, TaskInTest, TaskClosed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a task in status s may move to next.
// Staying in the same status is always allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return next.Valid()
	}
	switch s {
	case TaskOpen:
		return next == TaskInDevelopment || next == TaskClosed
	case TaskInDevelopment:
		return next == TaskInTest || next == TaskClosed || next == TaskOpen
	case TaskInTest:
		return next == TaskClosed || next == TaskInDevelopment || next == TaskOpen
	case TaskClosed:
		return next == TaskOpen
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is a unit of work inside a project
type Task struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Description string       `json:"description"`
	ProjectID   uint         `gorm:"not null;index" json:"project_id"`
	Status      TaskStatus   `gorm:"size:20;not null;default:'open'" json:"status"`
	Priority    TaskPriority `gorm:"size:10;not null;default:'medium'" json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	CreatorID   uint         `gorm:"not null;index" json:"creator_id"`
	AssigneeID  *uint        `gorm:"index" json:"assignee_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Loaded through the task_tags join table.
	Tags []Tag `gorm:"-" json:"tags"`
}
