// Package sqlite provides the SQLite-backed storage used by default.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/storage"
	"github.com/mcoot/archive/internal/storage/sqlite/migrations"
)

// Store persists users and game sessions in a SQLite file
type Store struct {
	db *sql.DB
}

// Ensure Store implements the interface
var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value)
}

// OpenDB opens the SQLite database at path without touching the schema,
// creating the parent directory if needed
func OpenDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; keeps pragmas on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// NewMigratorFor returns a Migrator over the embedded schema migrations
func NewMigratorFor(db *sql.DB) (*Migrator, error) {
	return NewMigrator(db, migrations.FS)
}

// Open opens the SQLite store at path and applies all pending migrations
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrator, err := NewMigratorFor(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.Migrate(ctx, LatestVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	email := strings.ToLower(user.Email)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at) VALUES (?, ?, ?, ?)`,
		user.Name, email, user.PasswordHash, toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = model.UserID(id)
	user.Email = email
	return nil
}

func (s *Store) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE email = ?`,
		strings.ToLower(email))
	return scanUser(row)
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	email := strings.ToLower(user.Email)
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password = ? WHERE id = ?`,
		user.Name, email, user.PasswordHash, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrUserNotFound
	}
	user.Email = email
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id model.UserID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_sessions WHERE user_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete user sessions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return model.ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Session operations

func (s *Store) CreateSession(ctx context.Context, session *model.GameSession) (model.SessionID, error) {
	blob, err := model.EncodeSessionData(session.SessionData)
	if err != nil {
		return 0, fmt.Errorf("encode session data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO game_sessions (user_id, game_id, start_time, difficulty_level, session_data)
		 VALUES (?, ?, ?, ?, ?)`,
		session.UserID, string(session.GameID), toMillis(session.StartTime),
		string(session.DifficultyLevel), blob,
	)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	session.ID = model.SessionID(id)
	return session.ID, nil
}

func (s *Store) UpdateSession(ctx context.Context, session *model.GameSession) (bool, error) {
	blob, err := model.EncodeSessionData(session.SessionData)
	if err != nil {
		return false, fmt.Errorf("encode session data: %w", err)
	}

	var endTime sql.NullInt64
	if session.EndTime != nil {
		endTime = sql.NullInt64{Int64: toMillis(*session.EndTime), Valid: true}
	}
	var duration sql.NullFloat64
	if session.Duration != nil {
		duration = sql.NullFloat64{Float64: *session.Duration, Valid: true}
	}
	var score sql.NullInt64
	if session.Score != nil {
		score = sql.NullInt64{Int64: int64(*session.Score), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE game_sessions
		 SET end_time = ?, duration = ?, score = ?, completed = ?, difficulty_level = ?, session_data = ?
		 WHERE id = ?`,
		endTime, duration, score, session.Completed, string(session.DifficultyLevel), blob, session.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update session: %w", err)
	}
	return n > 0, nil
}

const sessionColumns = `id, user_id, game_id, start_time, end_time, duration, score, completed, difficulty_level, session_data`

func (s *Store) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) FindSessionsByUser(ctx context.Context, userID model.UserID, limit int) ([]*model.GameSession, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions
		 WHERE user_id = ?
		 ORDER BY start_time DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.GameSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

func scanSession(row scanner) (*model.GameSession, error) {
	var (
		session    model.GameSession
		gameID     string
		difficulty string
		startTime  int64
		endTime    sql.NullInt64
		duration   sql.NullFloat64
		score      sql.NullInt64
		blob       sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&gameID,
		&startTime,
		&endTime,
		&duration,
		&score,
		&session.Completed,
		&difficulty,
		&blob,
	); err != nil {
		return nil, err
	}

	session.GameID = model.GameID(gameID)
	session.DifficultyLevel = model.Difficulty(difficulty)
	session.StartTime = fromMillis(startTime)
	if endTime.Valid {
		t := fromMillis(endTime.Int64)
		session.EndTime = &t
	}
	if duration.Valid {
		d := duration.Float64
		session.Duration = &d
	}
	if score.Valid {
		v := int(score.Int64)
		session.Score = &v
	}
	session.SessionData = model.DecodeSessionData(blob.String)
	return &session, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
