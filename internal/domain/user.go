package domain

import (
	"time"
)

type User struct {
	ID    string
	Email string
	Name  *string

	CreatedAt time.Time
	UpdatedAt time.Time
	// When the current session of the user expires
	ExpiresAt time.Time
}

func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
