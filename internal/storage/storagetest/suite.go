// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// Backends embed it and set NewStorage before suite.Run.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
	Base  time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
	// Millisecond precision survives every backend
	s.Base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
}

func (s *Suite) createUser(name, email string) *model.User {
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    s.Base,
	}
	s.Require().NoError(s.Store.CreateUser(s.Ctx, user))
	return user
}

func (s *Suite) createSession(userID model.UserID, gameID model.GameID, start time.Time) *model.GameSession {
	session := model.NewGameSession(userID, gameID, model.DifficultyMedium, start)
	_, err := s.Store.CreateSession(s.Ctx, session)
	s.Require().NoError(err)
	return session
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	user := s.createUser("Alice", "Alice@Example.com")
	s.NotZero(user.ID)
	s.Equal("alice@example.com", user.Email)

	retrieved, err := s.Store.GetUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Name)
	s.Equal("alice@example.com", retrieved.Email)
	s.Equal("hash", retrieved.PasswordHash)
	s.True(s.Base.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestCreateUserAssignsDistinctIDs() {
	first := s.createUser("Alice", "alice@example.com")
	second := s.createUser("Bob", "bob@example.com")
	s.NotEqual(first.ID, second.ID)
}

func (s *Suite) TestCreateUserDuplicateEmail() {
	s.createUser("Alice", "alice@example.com")

	err := s.Store.CreateUser(s.Ctx, &model.User{Name: "Other", Email: "ALICE@example.com", CreatedAt: s.Base})
	s.ErrorIs(err, model.ErrEmailExists)
}

func (s *Suite) TestGetUserByEmailIsCaseInsensitive() {
	user := s.createUser("Alice", "alice@example.com")

	retrieved, err := s.Store.GetUserByEmail(s.Ctx, "ALICE@EXAMPLE.COM")
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Store.GetUser(s.Ctx, 999)
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Store.GetUserByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUpdateUser() {
	user := s.createUser("Alice", "alice@example.com")

	user.Name = "Alicia"
	user.Email = "alicia@example.com"
	user.PasswordHash = "newhash"
	s.Require().NoError(s.Store.UpdateUser(s.Ctx, user))

	retrieved, err := s.Store.GetUserByEmail(s.Ctx, "alicia@example.com")
	s.Require().NoError(err)
	s.Equal("Alicia", retrieved.Name)
	s.Equal("newhash", retrieved.PasswordHash)

	_, err = s.Store.GetUserByEmail(s.Ctx, "alice@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUpdateUserKeepsOwnEmail() {
	user := s.createUser("Alice", "alice@example.com")

	user.Name = "Alicia"
	s.Require().NoError(s.Store.UpdateUser(s.Ctx, user))

	retrieved, err := s.Store.GetUserByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("Alicia", retrieved.Name)
}

func (s *Suite) TestUpdateUserEmailTaken() {
	s.createUser("Alice", "alice@example.com")
	bob := s.createUser("Bob", "bob@example.com")

	bob.Email = "alice@example.com"
	err := s.Store.UpdateUser(s.Ctx, bob)
	s.ErrorIs(err, model.ErrEmailExists)
}

func (s *Suite) TestUpdateUserNotFound() {
	err := s.Store.UpdateUser(s.Ctx, &model.User{ID: 999, Name: "Ghost", Email: "ghost@example.com"})
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestDeleteUserRemovesSessions() {
	alice := s.createUser("Alice", "alice@example.com")
	bob := s.createUser("Bob", "bob@example.com")
	aliceSession := s.createSession(alice.ID, "number_guessing", s.Base)
	bobSession := s.createSession(bob.ID, "number_guessing", s.Base)

	s.Require().NoError(s.Store.DeleteUser(s.Ctx, alice.ID))

	_, err := s.Store.GetUser(s.Ctx, alice.ID)
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.Store.GetSession(s.Ctx, aliceSession.ID)
	s.ErrorIs(err, model.ErrSessionNotFound)

	_, err = s.Store.GetSession(s.Ctx, bobSession.ID)
	s.NoError(err)

	// The email is free again
	s.createUser("Alice Again", "alice@example.com")
}

func (s *Suite) TestDeleteUserNotFound() {
	err := s.Store.DeleteUser(s.Ctx, 999)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Session tests

func (s *Suite) TestCreateAndGetSession() {
	user := s.createUser("Alice", "alice@example.com")
	session := s.createSession(user.ID, "number_guessing", s.Base)
	s.NotZero(session.ID)

	retrieved, err := s.Store.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.UserID)
	s.Equal(model.GameID("number_guessing"), retrieved.GameID)
	s.Equal(model.DifficultyMedium, retrieved.DifficultyLevel)
	s.True(s.Base.Equal(retrieved.StartTime))
	s.Nil(retrieved.EndTime)
	s.Nil(retrieved.Duration)
	s.Nil(retrieved.Score)
	s.False(retrieved.Completed)
	s.Empty(retrieved.SessionData)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Store.GetSession(s.Ctx, 999)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestUpdateSessionWritesClosingFields() {
	user := s.createUser("Alice", "alice@example.com")
	session := s.createSession(user.ID, "number_guessing", s.Base)

	session.End(s.Base.Add(90*time.Second), 1600, true, model.SessionData{
		"attempts_used": 4,
		"success":       true,
		"guess_1":       map[string]any{"value": 100, "time_taken": 1.25},
		"guess_2":       map[string]any{"value": 50, "time_taken": 2.0},
		"ratio":         3.0,
	})
	updated, err := s.Store.UpdateSession(s.Ctx, session)
	s.Require().NoError(err)
	s.True(updated)

	retrieved, err := s.Store.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.EndTime)
	s.True(s.Base.Add(90 * time.Second).Equal(*retrieved.EndTime))
	s.Require().NotNil(retrieved.Duration)
	s.InDelta(90.0, *retrieved.Duration, 0.001)
	s.Require().NotNil(retrieved.Score)
	s.Equal(1600, *retrieved.Score)
	s.True(retrieved.Completed)
	s.Equal(4, retrieved.SessionData["attempts_used"])
	s.Equal(true, retrieved.SessionData["success"])
	s.Equal(map[string]any{"value": 100, "time_taken": 1.25}, retrieved.SessionData["guess_1"])
	// Whole-number floats stay floats
	s.Equal(map[string]any{"value": 50, "time_taken": 2.0}, retrieved.SessionData["guess_2"])
	s.Equal(3.0, retrieved.SessionData["ratio"])
}

func (s *Suite) TestUpdateSessionUnknownID() {
	session := model.NewGameSession(1, "number_guessing", model.DifficultyEasy, s.Base)
	session.ID = 999
	session.End(s.Base, 0, false, nil)

	updated, err := s.Store.UpdateSession(s.Ctx, session)
	s.Require().NoError(err)
	s.False(updated)
}

func (s *Suite) TestFindSessionsByUserMostRecentFirst() {
	alice := s.createUser("Alice", "alice@example.com")
	bob := s.createUser("Bob", "bob@example.com")

	oldest := s.createSession(alice.ID, "number_guessing", s.Base)
	newest := s.createSession(alice.ID, "number_guessing", s.Base.Add(2*time.Hour))
	middle := s.createSession(alice.ID, "number_guessing", s.Base.Add(time.Hour))
	s.createSession(bob.ID, "number_guessing", s.Base.Add(3*time.Hour))

	sessions, err := s.Store.FindSessionsByUser(s.Ctx, alice.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 3)
	s.Equal(newest.ID, sessions[0].ID)
	s.Equal(middle.ID, sessions[1].ID)
	s.Equal(oldest.ID, sessions[2].ID)
}

func (s *Suite) TestFindSessionsByUserLimit() {
	user := s.createUser("Alice", "alice@example.com")
	for i := range 5 {
		s.createSession(user.ID, "number_guessing", s.Base.Add(time.Duration(i)*time.Minute))
	}

	sessions, err := s.Store.FindSessionsByUser(s.Ctx, user.ID, 2)
	s.Require().NoError(err)
	s.Len(sessions, 2)
	s.True(s.Base.Add(4 * time.Minute).Equal(sessions[0].StartTime))
}

func (s *Suite) TestFindSessionsByUserDefaultLimit() {
	user := s.createUser("Alice", "alice@example.com")
	for i := range storage.DefaultHistoryLimit + 2 {
		s.createSession(user.ID, "number_guessing", s.Base.Add(time.Duration(i)*time.Minute))
	}

	sessions, err := s.Store.FindSessionsByUser(s.Ctx, user.ID, 0)
	s.Require().NoError(err)
	s.Len(sessions, storage.DefaultHistoryLimit)
}

func (s *Suite) TestFindSessionsByUserEmpty() {
	user := s.createUser("Alice", "alice@example.com")

	sessions, err := s.Store.FindSessionsByUser(s.Ctx, user.ID, 10)
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *Suite) TestReturnedSessionIsACopy() {
	user := s.createUser("Alice", "alice@example.com")
	session := s.createSession(user.ID, "number_guessing", s.Base)

	retrieved, err := s.Store.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	retrieved.SessionData["mutated"] = true

	again, err := s.Store.GetSession(s.Ctx, session.ID)
	s.Require().NoError(err)
	s.NotContains(again.SessionData, "mutated")
}
