package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users      map[model.UserID]*model.User
	emailIndex map[string]model.UserID
	sessions   map[model.SessionID]*model.GameSession

	nextUserID    model.UserID
	nextSessionID model.SessionID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:      make(map[model.UserID]*model.User),
		emailIndex: make(map[string]model.UserID),
		sessions:   make(map[model.SessionID]*model.GameSession),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.emailIndex[email]; ok {
		return model.ErrEmailExists
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.Email = email

	stored := *user
	s.users[user.ID] = &stored
	s.emailIndex[email] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return model.ErrUserNotFound
	}

	email := strings.ToLower(user.Email)
	if owner, taken := s.emailIndex[email]; taken && owner != user.ID {
		return model.ErrEmailExists
	}

	delete(s.emailIndex, existing.Email)
	user.Email = email
	stored := *user
	s.users[user.ID] = &stored
	s.emailIndex[email] = user.ID
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	delete(s.emailIndex, user.Email)
	delete(s.users, id)

	for sid, session := range s.sessions {
		if session.UserID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.GameSession) (model.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSessionID++
	session.ID = s.nextSessionID
	s.sessions[session.ID] = cloneSession(session)
	return session.ID, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.GameSession) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return false, nil
	}
	s.sessions[session.ID] = cloneSession(session)
	return true, nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *Storage) FindSessionsByUser(ctx context.Context, userID model.UserID, limit int) ([]*model.GameSession, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.GameSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			result = append(result, cloneSession(session))
		}
	}

	// Most recent first; ties broken by the later insert
	slices.SortFunc(result, func(a, b *model.GameSession) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneSession copies a session so callers never share the stored telemetry map
func cloneSession(session *model.GameSession) *model.GameSession {
	copied := *session
	copied.SessionData = maps.Clone(session.SessionData)
	if copied.SessionData == nil {
		copied.SessionData = model.SessionData{}
	}
	return &copied
}
