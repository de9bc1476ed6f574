// Package tracker opens, annotates and closes game session records.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/archive/internal/dependencies/clock"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
)

// ErrSessionActive is returned by StartSession while another session is open
var ErrSessionActive = errors.New("a game session is already active")

// Tracker owns at most one in-flight game session and delegates all
// persistence to the session store
type Tracker struct {
	store  storage.SessionStore
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	active *model.GameSession
}

// New creates a new Tracker
func New(store storage.SessionStore, clk clock.Clock, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// StartSession inserts an open session row and makes it the active session
func (t *Tracker) StartSession(ctx context.Context, userID model.UserID, gameID model.GameID, difficulty model.Difficulty) (model.SessionID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return 0, ErrSessionActive
	}

	session := model.NewGameSession(userID, gameID, difficulty, t.clock.Now())
	id, err := t.store.CreateSession(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}

	t.active = session
	t.logger.Info("game session started",
		"session_id", id,
		"user_id", userID,
		"game_id", gameID,
		"difficulty", difficulty)
	return id, nil
}

// EndSession closes the active session and writes it back. Returns false
// without touching anything if no session is active. The active session is
// cleared even when the write fails.
func (t *Tracker) EndSession(ctx context.Context, score int, completed bool, data model.SessionData) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return false, nil
	}

	session := t.active
	t.active = nil
	session.End(t.clock.Now(), score, completed, data)

	updated, err := t.store.UpdateSession(ctx, session)
	if err != nil {
		return false, fmt.Errorf("end session %d: %w", session.ID, err)
	}

	t.logger.Info("game session ended",
		"session_id", session.ID,
		"score", score,
		"completed", completed,
		"duration_seconds", *session.Duration,
		"persisted", updated)
	return updated, nil
}

// UpdateSessionData sets key on the active session's telemetry. Returns
// false if no session is active.
func (t *Tracker) UpdateSessionData(key string, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return false
	}
	t.active.SessionData[key] = value
	return true
}

// ActiveSessionID returns the ID of the open session, if any
func (t *Tracker) ActiveSessionID() (model.SessionID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return 0, false
	}
	return t.active.ID, true
}

// UserHistory returns the user's sessions, most recent first, at most limit
func (t *Tracker) UserHistory(ctx context.Context, userID model.UserID, limit int) ([]*model.GameSession, error) {
	sessions, err := t.store.FindSessionsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("user history: %w", err)
	}
	return sessions, nil
}
