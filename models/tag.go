package models

import "time"

// DefaultTagColor is used for tags created implicitly from a task's tag list.
const DefaultTagColor = "#9E9E9E"

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Color string `gorm:"size:7;not null" json:"color"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskTag is the join row between a task and a tag
type TaskTag struct {
	TaskID uint `gorm:"primaryKey" json:"task_id"`
	TagID  uint `gorm:"primaryKey;index" json:"tag_id"`
}
