package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/archive/internal/dependencies/clock"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrNoChanges          = errors.New("no changes were made to your profile")
	ErrValidation         = errors.New("validation failed")
)

// Session is the authentication context of a logged-in user. It is passed
// explicitly to everything acting on the user's behalf.
type Session struct {
	Token     string
	User      model.Profile
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserID is a shorthand for the authenticated user's ID
func (s *Session) UserID() model.UserID {
	return s.User.ID
}

// Registration is the input to Register
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// ProfileUpdate is the input to UpdateProfile. Blank fields keep their
// current value.
type ProfileUpdate struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service handles accounts and login sessions
type Service struct {
	users  storage.UserStore
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
	bcryptCost      int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	BcryptCost      int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      12,
	}
}

// New creates a new auth Service
func New(users storage.UserStore, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		users:           users,
		clock:           clock,
		logger:          logger,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

// Register creates an account and logs it in
func (s *Service) Register(ctx context.Context, reg Registration) (*Session, error) {
	if err := check(
		fieldCheck{"name", ValidateName(reg.Name)},
		fieldCheck{"email", ValidateEmail(reg.Email)},
		fieldCheck{"password", ValidatePassword(reg.Password)},
		fieldCheck{"confirm_password", ValidatePasswordMatch(reg.Password, reg.ConfirmPassword)},
	); err != nil {
		return nil, err
	}

	hash, err := s.hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(reg.Name),
		Email:        strings.ToLower(strings.TrimSpace(reg.Email)),
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.createSession(user), nil
}

// EmailAvailable reports whether no account uses email
func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Login authenticates by email and password
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.createSession(user), nil
}

// UpdateProfile applies the non-blank fields of update to the session's user
// and returns the refreshed session
func (s *Service) UpdateProfile(ctx context.Context, session *Session, update ProfileUpdate) (*Session, error) {
	if _, err := s.ValidateSession(session.Token); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, session.UserID())
	if err != nil {
		return nil, err
	}

	changed := false

	if name := strings.TrimSpace(update.Name); name != "" && name != user.Name {
		if err := check(fieldCheck{"name", ValidateName(name)}); err != nil {
			return nil, err
		}
		user.Name = name
		changed = true
	}

	if email := strings.ToLower(strings.TrimSpace(update.Email)); email != "" && email != user.Email {
		if err := check(fieldCheck{"email", ValidateEmail(email)}); err != nil {
			return nil, err
		}
		user.Email = email
		changed = true
	}

	if update.Password != "" {
		if err := check(
			fieldCheck{"password", ValidatePassword(update.Password)},
			fieldCheck{"confirm_password", ValidatePasswordMatch(update.Password, update.ConfirmPassword)},
		); err != nil {
			return nil, err
		}
		hash, err := s.hash(update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changed = true
	}

	if !changed {
		return nil, ErrNoChanges
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.mu.Lock()
	refreshed := *session
	refreshed.User = user.Profile()
	s.sessions[session.Token] = &refreshed
	s.mu.Unlock()

	s.logger.Info("profile updated", "user_id", user.ID)
	return &refreshed, nil
}

// DeleteAccount removes the session's user and all of their game sessions
// after checking password, then logs the session out
func (s *Service) DeleteAccount(ctx context.Context, session *Session, password string) error {
	if _, err := s.ValidateSession(session.Token); err != nil {
		return err
	}

	user, err := s.users.GetUser(ctx, session.UserID())
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.InvalidateSession(session.Token)
	s.logger.Info("account deleted", "user_id", user.ID)
	return nil
}

// Logout ends the session
func (s *Service) Logout(session *Session) {
	if session == nil {
		return
	}
	s.InvalidateSession(session.Token)
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.InvalidateSession(token)
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// createSession creates a new session for a user
func (s *Service) createSession(user *model.User) *Session {
	now := s.clock.Now()

	session := &Session{
		Token:     uuid.NewString(),
		User:      user.Profile(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
