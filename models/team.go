package models

import "time"

// Team represents a group of employees working on projects
type Team struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `json:"description"`
	CreatedBy   uint   `gorm:"not null;index" json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamMember is the join row between a team and an employee
type TeamMember struct {
	TeamID   uint      `gorm:"primaryKey" json:"team_id"`
	UserID   uint      `gorm:"primaryKey;index" json:"user_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// MemberView is a team member together with the user's public profile.
type MemberView struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	AvatarURL *string   `json:"avatar_url"`
	JoinedAt  time.Time `json:"joined_at"`
}
