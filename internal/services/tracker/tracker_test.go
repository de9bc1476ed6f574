package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/archive/internal/dependencies/mocks"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
	"github.com/mcoot/archive/internal/storage/memory"
	"github.com/mcoot/archive/internal/testutil"
)

var errStoreDown = errors.New("store down")

// failingStore wraps a real store and fails the selected operations
type failingStore struct {
	storage.SessionStore
	failCreate bool
	failUpdate bool
}

func (f *failingStore) CreateSession(ctx context.Context, session *model.GameSession) (model.SessionID, error) {
	if f.failCreate {
		return 0, errStoreDown
	}
	return f.SessionStore.CreateSession(ctx, session)
}

func (f *failingStore) UpdateSession(ctx context.Context, session *model.GameSession) (bool, error) {
	if f.failUpdate {
		return false, errStoreDown
	}
	return f.SessionStore.UpdateSession(ctx, session)
}

type TrackerSuite struct {
	suite.Suite
	store   *memory.Storage
	clock   *mocks.MockClock
	tracker *Tracker
	ctx     context.Context
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.tracker = New(s.store, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *TrackerSuite) start() model.SessionID {
	id, err := s.tracker.StartSession(s.ctx, 42, "number_guessing", model.DifficultyHard)
	s.Require().NoError(err)
	return id
}

func (s *TrackerSuite) TestStartSessionPersistsOpenRow() {
	id := s.start()
	s.NotZero(id)

	active, ok := s.tracker.ActiveSessionID()
	s.True(ok)
	s.Equal(id, active)

	session, err := s.store.GetSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.UserID(42), session.UserID)
	s.Equal(model.GameID("number_guessing"), session.GameID)
	s.Equal(model.DifficultyHard, session.DifficultyLevel)
	s.Equal(s.clock.Now(), session.StartTime)
	s.Nil(session.EndTime)
}

func (s *TrackerSuite) TestStartSessionWhileActive() {
	first := s.start()

	_, err := s.tracker.StartSession(s.ctx, 7, "other", model.DifficultyEasy)
	s.ErrorIs(err, ErrSessionActive)

	active, ok := s.tracker.ActiveSessionID()
	s.True(ok)
	s.Equal(first, active)
}

func (s *TrackerSuite) TestEndSessionClosesRow() {
	id := s.start()
	s.clock.Advance(90 * time.Second)

	ended, err := s.tracker.EndSession(s.ctx, 1600, true, model.SessionData{"attempts_used": 4})
	s.Require().NoError(err)
	s.True(ended)

	_, ok := s.tracker.ActiveSessionID()
	s.False(ok)

	session, err := s.store.GetSession(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(session.EndTime)
	s.Equal(s.clock.Now(), *session.EndTime)
	s.Require().NotNil(session.Duration)
	s.InDelta(90.0, *session.Duration, 0.0001)
	s.Require().NotNil(session.Score)
	s.Equal(1600, *session.Score)
	s.True(session.Completed)
	s.Equal(4, session.SessionData["attempts_used"])
}

func (s *TrackerSuite) TestEndSessionWithoutActive() {
	ended, err := s.tracker.EndSession(s.ctx, 100, true, nil)
	s.NoError(err)
	s.False(ended)

	sessions, err := s.store.FindSessionsByUser(s.ctx, 42, 10)
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *TrackerSuite) TestEndSessionMergesData() {
	id := s.start()
	s.True(s.tracker.UpdateSessionData("range", "1-200"))
	s.True(s.tracker.UpdateSessionData("success", false))

	_, err := s.tracker.EndSession(s.ctx, 0, false, model.SessionData{"success": true, "quit_early": true})
	s.Require().NoError(err)

	session, err := s.store.GetSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("1-200", session.SessionData["range"])
	s.Equal(true, session.SessionData["success"])
	s.Equal(true, session.SessionData["quit_early"])
}

func (s *TrackerSuite) TestUpdateSessionDataLastWriteWins() {
	id := s.start()
	s.True(s.tracker.UpdateSessionData("k", 1))
	s.True(s.tracker.UpdateSessionData("k", 2))

	_, err := s.tracker.EndSession(s.ctx, 0, false, nil)
	s.Require().NoError(err)

	session, err := s.store.GetSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(2, session.SessionData["k"])
}

func (s *TrackerSuite) TestUpdateSessionDataWithoutActive() {
	s.False(s.tracker.UpdateSessionData("k", 1))
}

func (s *TrackerSuite) TestSessionCanRestartAfterEnd() {
	first := s.start()
	_, err := s.tracker.EndSession(s.ctx, 0, false, nil)
	s.Require().NoError(err)

	second := s.start()
	s.NotEqual(first, second)
}

func (s *TrackerSuite) TestStartSessionStoreFailure() {
	tr := New(&failingStore{SessionStore: s.store, failCreate: true}, s.clock, testutil.NopLogger())

	_, err := tr.StartSession(s.ctx, 42, "number_guessing", model.DifficultyEasy)
	s.ErrorIs(err, errStoreDown)

	_, ok := tr.ActiveSessionID()
	s.False(ok)
}

func (s *TrackerSuite) TestEndSessionStoreFailureClearsActive() {
	store := &failingStore{SessionStore: s.store}
	tr := New(store, s.clock, testutil.NopLogger())
	_, err := tr.StartSession(s.ctx, 42, "number_guessing", model.DifficultyEasy)
	s.Require().NoError(err)

	store.failUpdate = true
	ended, err := tr.EndSession(s.ctx, 10, true, nil)
	s.ErrorIs(err, errStoreDown)
	s.False(ended)

	_, ok := tr.ActiveSessionID()
	s.False(ok)
}

func (s *TrackerSuite) TestUserHistoryMostRecentFirst() {
	for i := range 3 {
		s.start()
		s.clock.Advance(time.Minute)
		_, err := s.tracker.EndSession(s.ctx, i*100, true, nil)
		s.Require().NoError(err)
	}

	history, err := s.tracker.UserHistory(s.ctx, 42, 2)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(200, *history[0].Score)
	s.Equal(100, *history[1].Score)
}
