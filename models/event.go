package models

import "time"

// Event is a personal calendar entry. It is visible to its owner only.
type Event struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	Title       string `gorm:"size:150;not null" json:"title"`
	Description string `json:"description"`
	// EventDate is YYYY-MM-DD, EventTime is HH:MM (empty for all-day events).
	EventDate string `gorm:"size:10;not null;index" json:"event_date"`
	EventTime string `gorm:"size:5" json:"event_time"`
	Color     string `gorm:"size:7" json:"color"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
