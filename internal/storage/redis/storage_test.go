package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
	"github.com/mcoot/archive/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini *miniredis.Miniredis
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.mini = miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{
			Addr: s.mini.Addr(),
		})
		return NewWithClient(client, DefaultConfig())
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestKeysUseArchivePrefix() {
	user := &model.User{Name: "Alice", Email: "alice@example.com", CreatedAt: s.Base}
	s.Require().NoError(s.Store.CreateUser(s.Ctx, user))
	session := model.NewGameSession(user.ID, "number_guessing", model.DifficultyHard, s.Base)
	_, err := s.Store.CreateSession(s.Ctx, session)
	s.Require().NoError(err)

	s.True(s.mini.Exists(userKey(user.ID)))
	s.True(s.mini.Exists(emailIndexKey("alice@example.com")))
	s.True(s.mini.Exists(sessionKey(session.ID)))

	members, err := s.mini.ZMembers(userSessionsIndexKey(user.ID))
	s.Require().NoError(err)
	s.Equal([]string{sessionMember(session.ID)}, members)
}

func (s *StorageSuite) TestUpdateUserReleasesOldEmail() {
	user := &model.User{Name: "Alice", Email: "alice@example.com", CreatedAt: s.Base}
	s.Require().NoError(s.Store.CreateUser(s.Ctx, user))

	user.Email = "alicia@example.com"
	s.Require().NoError(s.Store.UpdateUser(s.Ctx, user))

	s.False(s.mini.Exists(emailIndexKey("alice@example.com")))
	s.True(s.mini.Exists(emailIndexKey("alicia@example.com")))
}

func (s *StorageSuite) TestExpiredSessionsDropOutOfHistory() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour
	store := NewWithClient(client, cfg)
	defer store.Close()

	user := &model.User{Name: "Alice", Email: "alice@example.com", CreatedAt: s.Base}
	s.Require().NoError(store.CreateUser(s.Ctx, user))
	session := model.NewGameSession(user.ID, "number_guessing", model.DifficultyEasy, s.Base)
	_, err := store.CreateSession(s.Ctx, session)
	s.Require().NoError(err)

	s.mini.FastForward(2 * time.Hour)

	sessions, err := store.FindSessionsByUser(s.Ctx, user.ID, 10)
	s.Require().NoError(err)
	s.Empty(sessions)

	// The last member removed deletes the index key
	s.False(s.mini.Exists(userSessionsIndexKey(user.ID)))
}

func (s *StorageSuite) TestHistoryFillsLimitPastExpiredSessions() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour
	store := NewWithClient(client, cfg)
	defer store.Close()

	user := &model.User{Name: "Alice", Email: "alice@example.com", CreatedAt: s.Base}
	s.Require().NoError(store.CreateUser(s.Ctx, user))

	var ids []model.SessionID
	for i := range 5 {
		session := model.NewGameSession(user.ID, "number_guessing", model.DifficultyEasy, s.Base.Add(time.Duration(i)*time.Minute))
		_, err := store.CreateSession(s.Ctx, session)
		s.Require().NoError(err)
		ids = append(ids, session.ID)
	}

	// The three newest expire first
	for _, id := range ids[2:] {
		s.mini.SetTTL(sessionKey(id), time.Minute)
	}
	s.mini.FastForward(2 * time.Minute)

	sessions, err := store.FindSessionsByUser(s.Ctx, user.ID, 2)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(ids[1], sessions[0].ID)
	s.Equal(ids[0], sessions[1].ID)

	members, err := client.ZRange(s.Ctx, userSessionsIndexKey(user.ID), 0, -1).Result()
	s.Require().NoError(err)
	s.Equal([]string{sessionMember(ids[0]), sessionMember(ids[1])}, members)
}

func (s *StorageSuite) TestUpdateSessionKeepsTTL() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour
	store := NewWithClient(client, cfg)
	defer store.Close()

	session := model.NewGameSession(1, "number_guessing", model.DifficultyEasy, s.Base)
	_, err := store.CreateSession(s.Ctx, session)
	s.Require().NoError(err)

	session.End(s.Base.Add(time.Minute), 500, true, nil)
	updated, err := store.UpdateSession(s.Ctx, session)
	s.Require().NoError(err)
	s.True(updated)
	s.Equal(time.Hour, s.mini.TTL(sessionKey(session.ID)))
}

func TestNewRejectsBadURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "not a url"
	_, err := New(cfg)
	require.Error(t, err)
}
