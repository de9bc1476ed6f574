package model

import "time"

// UserID uniquely identifies a registered user. Assigned by storage on creation.
type UserID int64

// User is a registered account holder
type User struct {
	ID           UserID
	Name         string
	Email        string // lower-cased, unique
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Profile is the user data safe to hand to the presentation layer
type Profile struct {
	ID        UserID
	Name      string
	Email     string
	CreatedAt time.Time
}

// Profile returns the user's public profile
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
