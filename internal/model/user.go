package model

import "time"

type User struct {
	ID             int       `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	Name           *string   `db:"name"`
	IsSuperuser    bool      `db:"is_superuser"`
	IsActive       bool      `db:"is_active"`
	CanPublish     bool      `db:"can_publish"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
