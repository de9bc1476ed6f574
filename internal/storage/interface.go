package storage

import (
	"context"

	"github.com/mcoot/archive/internal/model"
)

// DefaultHistoryLimit bounds FindSessionsByUser when the caller passes limit <= 0
const DefaultHistoryLimit = 10

// UserStore persists registered users
type UserStore interface {
	// CreateUser inserts a user and assigns user.ID.
	// Returns model.ErrEmailExists if the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser overwrites name, email and password hash.
	// Returns model.ErrEmailExists if the new email belongs to another user.
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser removes the user and all of their game sessions
	DeleteUser(ctx context.Context, id model.UserID) error
}

// SessionStore persists game sessions as insert-then-update rows
type SessionStore interface {
	// CreateSession inserts the opening row and assigns session.ID
	CreateSession(ctx context.Context, session *model.GameSession) (model.SessionID, error)
	// UpdateSession writes the closing fields. Returns false if no row matched.
	UpdateSession(ctx context.Context, session *model.GameSession) (bool, error)
	GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error)
	// FindSessionsByUser returns the user's sessions most recent first, at most limit
	FindSessionsByUser(ctx context.Context, userID model.UserID, limit int) ([]*model.GameSession, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	UserStore
	SessionStore
	Close() error
}
