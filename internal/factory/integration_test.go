package factory

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/games/numberguess"
	"github.com/mcoot/archive/internal/menu"
	"github.com/mcoot/archive/internal/model"
	redisstorage "github.com/mcoot/archive/internal/storage/redis"
	"github.com/mcoot/archive/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) terminal(lines ...string) (*console.Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return console.New(strings.NewReader(strings.Join(lines, "\n")+"\n"), out), out
}

func (s *IntegrationSuite) TestDefaultRegistry() {
	s.Equal([]model.GameID{numberguess.ID}, DefaultRegistry().Keys())
}

func (s *IntegrationSuite) TestPlayIsRecordedInHistory() {
	session, err := s.app.RegisterUser(s.ctx, "Alice", "alice@example.com")
	s.Require().NoError(err)

	term, out := s.terminal("30", "25")
	game, err := s.app.Catalog(term).Get(numberguess.ID)
	s.Require().NoError(err)
	game.SetDifficulty(model.DifficultyEasy)
	s.app.MockRandom.QueueIntn(24)

	result := game.Start(s.ctx, session.UserID(), s.app.Tracker)
	s.Require().NoError(result.Err)
	s.Equal(games.OutcomeWon, result.Outcome)
	s.Equal(450, result.Score)
	s.Contains(out.String(), "Too high!")

	history, err := s.app.Tracker.UserHistory(s.ctx, session.UserID(), 0)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	played := history[0]
	s.Equal(result.SessionID, played.ID)
	s.Equal(numberguess.ID, played.GameID)
	s.Require().NotNil(played.Score)
	s.Equal(450, *played.Score)
	s.True(played.Completed)
	s.Equal(2, played.SessionData["attempts_used"])
	s.Contains(played.SessionData, "guess_1")
	s.Contains(played.SessionData, "guess_2")
}

func (s *IntegrationSuite) TestDeleteAccountRemovesHistory() {
	session, err := s.app.RegisterUser(s.ctx, "Alice", "alice@example.com")
	s.Require().NoError(err)

	term, _ := s.terminal("q", "y")
	game, err := s.app.Catalog(term).Get(numberguess.ID)
	s.Require().NoError(err)
	result := game.Start(s.ctx, session.UserID(), s.app.Tracker)
	s.Equal(games.OutcomeQuit, result.Outcome)

	s.Require().NoError(s.app.AuthService.DeleteAccount(s.ctx, session, "password123"))

	_, err = s.app.Storage.GetSession(s.ctx, result.SessionID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *IntegrationSuite) TestMenuExits() {
	term, out := s.terminal("3")

	err := s.app.Menu(term, menu.Config{}).Run(s.ctx)
	s.Require().NoError(err)
	s.Contains(out.String(), "Goodbye")
}

// Storage selection tests

func (s *IntegrationSuite) TestOpenStorageMemory() {
	store, err := OpenStorage(s.ctx, Config{StorageType: StorageTypeMemory})
	s.Require().NoError(err)
	s.NoError(store.Close())
}

func (s *IntegrationSuite) TestNewWithSQLite() {
	path := filepath.Join(s.T().TempDir(), "nested", "archive.db")

	app, err := New(s.ctx, Config{StorageType: StorageTypeSQLite, SQLitePath: path, Logger: testutil.NopLogger()})
	s.Require().NoError(err)
	defer app.Close()

	s.NotNil(app.AuthService)
	s.NotNil(app.Tracker)
	s.Equal(1, app.Catalog(console.New(strings.NewReader(""), &bytes.Buffer{})).Len())
	s.FileExists(path)
}

func (s *IntegrationSuite) TestOpenStorageRedis() {
	mini := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()
	cfg.URL = "redis://" + mini.Addr()

	store, err := OpenStorage(s.ctx, Config{StorageType: StorageTypeRedis, RedisConfig: &cfg})
	s.Require().NoError(err)
	s.NoError(store.Close())
}

func (s *IntegrationSuite) TestOpenStorageRedisRequiresConfig() {
	_, err := OpenStorage(s.ctx, Config{StorageType: StorageTypeRedis})
	s.Error(err)
}

func (s *IntegrationSuite) TestOpenStorageUnknownType() {
	_, err := OpenStorage(s.ctx, Config{StorageType: "postgres"})
	s.ErrorContains(err, "invalid StorageType")
}
