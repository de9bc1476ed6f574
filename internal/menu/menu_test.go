package menu

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/dependencies/mocks"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/games/numberguess"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/services/auth"
	"github.com/mcoot/archive/internal/services/tracker"
	"github.com/mcoot/archive/internal/storage/memory"
	"github.com/mcoot/archive/internal/testutil"
)

type MenuSuite struct {
	suite.Suite
	store   *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	auth    *auth.Service
	tracker *tracker.Tracker
	out     *bytes.Buffer
	ctx     context.Context
}

func TestMenuSuite(t *testing.T) {
	suite.Run(t, new(MenuSuite))
}

func (s *MenuSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.auth = auth.New(s.store, s.clock, auth.Config{BcryptCost: bcrypt.MinCost}, testutil.NopLogger())
	s.tracker = tracker.New(s.store, s.clock, testutil.NopLogger())
	s.out = &bytes.Buffer{}
	s.ctx = context.Background()
}

// run feeds lines to a fresh menu and returns everything it printed
func (s *MenuSuite) run(lines ...string) string {
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	term := console.New(strings.NewReader(input), s.out)

	registry := &games.Registry{}
	registry.Register(numberguess.ID, numberguess.New)
	catalog := games.Discover(registry, games.Deps{
		Clock:   s.clock,
		Random:  s.random,
		Console: term,
		Logger:  testutil.NopLogger(),
	}, testutil.NopLogger())

	m := New(s.auth, s.tracker, catalog, term, Config{}, testutil.NopLogger())
	s.Require().NoError(m.Run(s.ctx))
	return s.out.String()
}

func (s *MenuSuite) registerAlice() *model.User {
	_, err := s.auth.Register(s.ctx, auth.Registration{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	s.Require().NoError(err)
	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	return user
}

func (s *MenuSuite) sessionsOf(userID model.UserID) []*model.GameSession {
	sessions, err := s.tracker.UserHistory(s.ctx, userID, 10)
	s.Require().NoError(err)
	return sessions
}

var registerLines = []string{"2", "Alice", "alice@example.com", "password123", "password123"}

func script(prefix []string, lines ...string) []string {
	return append(append([]string{}, prefix...), lines...)
}

// Auth menu tests

func (s *MenuSuite) TestExitFromAuthMenu() {
	out := s.run("3")
	s.Contains(out, "Welcome to the Archive")
	s.Contains(out, "Goodbye")
}

func (s *MenuSuite) TestInvalidSelectionReprompts() {
	out := s.run("9", "abc", "3")
	s.Equal(2, strings.Count(out, "Please enter a number between 1 and 3"))
}

func (s *MenuSuite) TestClosedInputEndsQuietly() {
	out := s.run()
	s.Contains(out, "Goodbye")
}

func (s *MenuSuite) TestRegisterThenExit() {
	out := s.run(script(registerLines, "7")...)

	s.Contains(out, "Registration successful, welcome to the Archive, Alice!")
	s.Contains(out, "Welcome, Alice!")
	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("Alice", user.Name)
}

func (s *MenuSuite) TestRegisterRepromptsInvalidFields() {
	out := s.run(
		"2",
		"Al", "Alice",
		"bad", "alice@example.com",
		"123", "123",
		"password123", "password124",
		"password123", "password123",
		"7",
	)

	s.Contains(out, "Invalid name: Name must be at least 3 characters long.")
	s.Contains(out, "Invalid email: Invalid email format.")
	s.Contains(out, "Invalid password: Password must be at least 6 characters long.")
	s.Contains(out, "Passwords don't match.")
	s.Contains(out, "Registration successful")
}

func (s *MenuSuite) TestRegisterRejectsTakenEmail() {
	s.registerAlice()

	out := s.run("2", "Bob", "ALICE@example.com", "bob@example.com", "password123", "password123", "7")

	s.Contains(out, "This email is already registered.")
	s.Contains(out, "welcome to the Archive, Bob!")
}

func (s *MenuSuite) TestBlankNameGoesBack() {
	out := s.run("2", "", "3")
	s.NotContains(out, "Registration successful")
}

func (s *MenuSuite) TestLoginRetriesUntilSuccess() {
	s.registerAlice()

	out := s.run("1", "alice@example.com", "wrong", "alice@example.com", "password123", "6", "3")

	s.Contains(out, "Invalid email or password")
	s.Contains(out, "Welcome back, Alice!")
	s.Contains(out, "You have been logged out.")
}

func (s *MenuSuite) TestLoginBlankEmailGoesBack() {
	out := s.run("1", "", "3")
	s.NotContains(out, "Welcome back")
	s.Contains(out, "Goodbye")
}

// Game tests

func (s *MenuSuite) TestPlayAndWin() {
	s.random.QueueIntn(24) // secret 25 on Easy

	out := s.run(script(registerLines,
		"1",  // Games
		"1",  // Number Guessing Game
		"1",  // Easy
		"25", // guess
		"3",  // return to games menu
		"2",  // return to main menu
		"7",
	)...)

	s.Contains(out, "You won! Final score: 500")
	s.Contains(out, "Your top recent Number Guessing Game scores")

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	sessions := s.sessionsOf(user.ID)
	s.Require().Len(sessions, 1)
	s.Equal(model.DifficultyEasy, sessions[0].DifficultyLevel)
	s.Require().NotNil(sessions[0].Score)
	s.Equal(500, *sessions[0].Score)
	s.True(sessions[0].Completed)
}

func (s *MenuSuite) TestDifficultyMenuDefaultsToCurrent() {
	s.random.QueueIntn(49) // secret 50 on Medium

	out := s.run(script(registerLines, "1", "1", "", "50", "3", "2", "7")...)

	s.Contains(out, "Medium (current)")
	s.Contains(out, "Select an option [2]")

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	sessions := s.sessionsOf(user.ID)
	s.Require().Len(sessions, 1)
	s.Equal(model.DifficultyMedium, sessions[0].DifficultyLevel)
}

func (s *MenuSuite) TestReplaySameDifficulty() {
	s.random.QueueIntn(24, 0) // secrets 25 then 1

	out := s.run(script(registerLines, "1", "1", "1", "25", "1", "1", "3", "2", "7")...)

	s.Contains(out, "Play Number Guessing Game again (same difficulty - Easy)")
	s.Equal(2, strings.Count(out, "You won! Final score: 500"))

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Len(s.sessionsOf(user.ID), 2)
}

func (s *MenuSuite) TestReplayWithNewDifficulty() {
	s.random.QueueIntn(24, 0)

	s.run(script(registerLines, "1", "1", "1", "25", "2", "3", "1", "3", "2", "7")...)

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	sessions := s.sessionsOf(user.ID)
	s.Require().Len(sessions, 2)
	s.Equal(model.DifficultyHard, sessions[0].DifficultyLevel)
	s.Equal(model.DifficultyEasy, sessions[1].DifficultyLevel)
}

func (s *MenuSuite) TestQuitGame() {
	out := s.run(script(registerLines, "1", "1", "1", "q", "y", "3", "2", "7")...)

	s.Contains(out, "Game ended early.")

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	sessions := s.sessionsOf(user.ID)
	s.Require().Len(sessions, 1)
	s.False(sessions[0].Completed)
	s.Equal(true, sessions[0].SessionData["quit_early"])
}

func (s *MenuSuite) TestClosedInputDuringGameClosesSession() {
	out := s.run(script(registerLines, "1", "1", "1")...)

	s.Contains(out, "Goodbye")

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	sessions := s.sessionsOf(user.ID)
	s.Require().Len(sessions, 1)
	s.True(sessions[0].IsEnded())
	s.False(sessions[0].Completed)
	s.Equal(console.ErrInputClosed.Error(), sessions[0].SessionData["error"])
}

func (s *MenuSuite) TestDifficultyMenuReturn() {
	s.run(script(registerLines, "1", "1", "4", "2", "7")...)

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Empty(s.sessionsOf(user.ID))
}

// History and profile tests

func (s *MenuSuite) TestHistoryEmpty() {
	out := s.run(script(registerLines, "4", "", "7")...)
	s.Contains(out, "You have not played any games yet.")
}

func (s *MenuSuite) TestHistoryListsPlays() {
	s.random.QueueIntn(24)

	out := s.run(script(registerLines, "1", "1", "1", "25", "3", "2", "4", "", "7")...)

	s.Contains(out, "Game History")
	s.Contains(out, "Number Guessing Game")
	s.Contains(out, "won")
}

func (s *MenuSuite) TestViewProfile() {
	out := s.run(script(registerLines, "2", "", "7")...)

	s.Contains(out, "User Profile")
	s.Contains(out, "alice@example.com")
}

func (s *MenuSuite) TestEditProfile() {
	out := s.run(script(registerLines, "3", "Alicia", "", "", "y", "", "7")...)

	s.Contains(out, "Name: Alice -> Alicia")
	s.Contains(out, "Profile updated successfully.")
	s.Contains(out, "Welcome, Alicia!")

	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("Alicia", user.Name)
}

func (s *MenuSuite) TestEditProfilePassword() {
	s.run(script(registerLines, "3", "", "", "newpassword", "newpassword", "y", "", "6", "3")...)

	_, err := s.auth.Login(s.ctx, "alice@example.com", "newpassword")
	s.NoError(err)
}

func (s *MenuSuite) TestEditProfileWithoutChanges() {
	out := s.run(script(registerLines, "3", "", "", "", "y", "", "7")...)
	s.Contains(out, "No changes were made to your profile.")
}

func (s *MenuSuite) TestEditProfileCancelled() {
	out := s.run(script(registerLines, "3", "Alicia", "", "", "n", "7")...)

	s.Contains(out, "Profile update canceled.")
	user, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal("Alice", user.Name)
}

// Delete account tests

func (s *MenuSuite) TestDeleteAccount() {
	out := s.run(script(registerLines, "5", "DELETE", "password123", "yes", "", "3")...)

	s.Contains(out, "Your account has been deleted.")
	_, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *MenuSuite) TestDeleteAccountWrongPassword() {
	out := s.run(script(registerLines, "5", "delete", "nope", "yes", "", "7")...)

	s.Contains(out, "Incorrect password")
	_, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
	s.NoError(err)
}

func (s *MenuSuite) TestDeleteAccountCancelled() {
	tests := []struct {
		name  string
		lines []string
	}{
		{"not typed", []string{"5", "no", ""}},
		{"no password", []string{"5", "DELETE", "", ""}},
		{"not sure", []string{"5", "DELETE", "password123", "no", ""}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			out := s.run(script(script(registerLines, tt.lines...), "7")...)

			s.Contains(out, "Account deletion cancelled.")
			_, err := s.store.GetUserByEmail(s.ctx, "alice@example.com")
			s.NoError(err)
		})
	}
}
