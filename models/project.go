package models

import "time"

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectArchived
}

// Project belongs to a team and is owned by the manager (or admin) who created it
type Project struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:150;not null" json:"name"`
	Description string        `json:"description"`
	TeamID      uint          `gorm:"not null;index" json:"team_id"`
	Status      ProjectStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	Deadline    *time.Time    `json:"deadline"`
	CreatorID   uint          `gorm:"not null;index" json:"creator_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
