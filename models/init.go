package models

import (
	"errors"

	"gorm.io/gorm"
)

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&EmailConfirmation{},
		&Team{},
		&TeamMember{},
		&Project{},
		&Task{},
		&Tag{},
		&TaskTag{},
		&Event{},
	}
}

// SeedAdmin creates the bootstrap admin account unless a user with that email already exists.
// Seeded admins are confirmed so they can log in straight away.
func SeedAdmin(db *gorm.DB, username, email, passwordHash string) (*User, bool, error) {
	if email == "" || passwordHash == "" {
		return nil, false, errors.New("admin email and password are required")
	}

	admin := User{
		Username:       username,
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           RoleAdmin,
		EmailConfirmed: true,
	}
	res := db.Where("email = ?", email).FirstOrCreate(&admin)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &admin, res.RowsAffected > 0, nil
}
