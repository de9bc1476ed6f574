package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

type userRecord struct {
	ID           model.UserID `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"password"`
	CreatedAt    int64        `json:"created_at"`
}

type sessionRecord struct {
	ID              model.SessionID `json:"id"`
	UserID          model.UserID    `json:"user_id"`
	GameID          string          `json:"game_id"`
	StartTime       int64           `json:"start_time"`
	EndTime         *int64          `json:"end_time"`
	Duration        *float64        `json:"duration"`
	Score           *int            `json:"score"`
	Completed       bool            `json:"completed"`
	DifficultyLevel string          `json:"difficulty_level"`
	SessionData     string          `json:"session_data"`
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	email := strings.ToLower(user.Email)

	id, err := s.client.Incr(ctx, sequenceKey("user")).Result()
	if err != nil {
		return err
	}

	// Claim the email first so two registrations cannot share it
	claimed, err := s.client.SetNX(ctx, emailIndexKey(email), id, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrEmailExists
	}

	user.ID = model.UserID(id)
	user.Email = email
	if err := s.saveUser(ctx, user); err != nil {
		_ = s.client.Del(ctx, emailIndexKey(email)).Err()
		return err
	}
	return nil
}

func (s *Storage) saveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(userRecord{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &model.User{
		ID:           rec.ID,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    time.UnixMilli(rec.CreatedAt),
	}, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	// Look up user ID from email index
	id, err := s.client.Get(ctx, emailIndexKey(strings.ToLower(email))).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}

	email := strings.ToLower(user.Email)
	if email != existing.Email {
		claimed, err := s.client.SetNX(ctx, emailIndexKey(email), int64(user.ID), 0).Result()
		if err != nil {
			return err
		}
		if !claimed {
			return model.ErrEmailExists
		}
	}

	user.Email = email
	if err := s.saveUser(ctx, user); err != nil {
		return err
	}
	if email != existing.Email {
		return s.client.Del(ctx, emailIndexKey(existing.Email)).Err()
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	members, err := s.client.ZRange(ctx, userSessionsIndexKey(id), 0, -1).Result()
	if err != nil {
		return err
	}

	// Use pipeline for atomic delete of the user, its index entries and sessions
	pipe := s.client.TxPipeline()
	for _, member := range members {
		sid, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		pipe.Del(ctx, sessionKey(model.SessionID(sid)))
	}
	pipe.Del(ctx, userSessionsIndexKey(id))
	pipe.Del(ctx, emailIndexKey(user.Email))
	pipe.Del(ctx, userKey(id))
	_, err = pipe.Exec(ctx)
	return err
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, session *model.GameSession) (model.SessionID, error) {
	id, err := s.client.Incr(ctx, sequenceKey("session")).Result()
	if err != nil {
		return 0, err
	}
	session.ID = model.SessionID(id)

	data, err := encodeSession(session)
	if err != nil {
		return 0, err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, s.cfg.SessionTTL)
	pipe.ZAdd(ctx, userSessionsIndexKey(session.UserID), redis.Z{
		Score:  float64(session.StartTime.UnixMilli()),
		Member: sessionMember(session.ID),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return session.ID, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.GameSession) (bool, error) {
	data, err := encodeSession(session)
	if err != nil {
		return false, err
	}

	// XX only overwrites an existing row
	updated, err := s.client.SetXX(ctx, sessionKey(session.ID), data, s.cfg.SessionTTL).Result()
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

func (s *Storage) FindSessionsByUser(ctx context.Context, userID model.UserID, limit int) ([]*model.GameSession, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	indexKey := userSessionsIndexKey(userID)
	sessions := make([]*model.GameSession, 0, limit)

	// Expired members are removed from the index as they are found, so the
	// next page starts right after the live sessions already collected
	for len(sessions) < limit {
		want := limit - len(sessions)
		offset := int64(len(sessions))
		members, err := s.client.ZRevRange(ctx, indexKey, offset, offset+int64(want)-1).Result()
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			break
		}

		page, expired, err := s.loadIndexedSessions(ctx, members)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, page...)

		if len(expired) > 0 {
			if err := s.client.ZRem(ctx, indexKey, expired...).Err(); err != nil {
				return nil, err
			}
		}
		if len(members) < want {
			break
		}
	}
	return sessions, nil
}

// loadIndexedSessions fetches the sessions named by index members. Members
// whose session key has expired are returned separately.
func (s *Storage) loadIndexedSessions(ctx context.Context, members []string) ([]*model.GameSession, []any, error) {
	keys := make([]string, len(members))
	for i, member := range members {
		sid, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid session index member %q: %w", member, err)
		}
		keys[i] = sessionKey(model.SessionID(sid))
	}

	// Fetch all sessions in one round trip using MGET
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	sessions := make([]*model.GameSession, 0, len(values))
	var expired []any
	for i, v := range values {
		if v == nil {
			expired = append(expired, members[i])
			continue
		}
		str, ok := v.(string)
		if !ok {
			expired = append(expired, members[i])
			continue
		}
		session, err := decodeSession([]byte(str))
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, expired, nil
}

func encodeSession(session *model.GameSession) ([]byte, error) {
	blob, err := model.EncodeSessionData(session.SessionData)
	if err != nil {
		return nil, fmt.Errorf("encode session data: %w", err)
	}

	rec := sessionRecord{
		ID:              session.ID,
		UserID:          session.UserID,
		GameID:          string(session.GameID),
		StartTime:       session.StartTime.UnixMilli(),
		Duration:        session.Duration,
		Score:           session.Score,
		Completed:       session.Completed,
		DifficultyLevel: string(session.DifficultyLevel),
		SessionData:     blob,
	}
	if session.EndTime != nil {
		end := session.EndTime.UnixMilli()
		rec.EndTime = &end
	}
	return json.Marshal(rec)
}

func decodeSession(data []byte) (*model.GameSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	session := &model.GameSession{
		ID:              rec.ID,
		UserID:          rec.UserID,
		GameID:          model.GameID(rec.GameID),
		StartTime:       time.UnixMilli(rec.StartTime),
		Duration:        rec.Duration,
		Score:           rec.Score,
		Completed:       rec.Completed,
		DifficultyLevel: model.Difficulty(rec.DifficultyLevel),
		SessionData:     model.DecodeSessionData(rec.SessionData),
	}
	if rec.EndTime != nil {
		end := time.UnixMilli(*rec.EndTime)
		session.EndTime = &end
	}
	return session, nil
}
