package model

import (
	"encoding/json"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// SessionID uniquely identifies a game session. Zero until persisted.
type SessionID int64

// SessionData is the open telemetry mapping attached to a session.
// Values must be JSON-serialisable.
type SessionData map[string]any

// GameSession is one timed play of a game variant by one user
type GameSession struct {
	ID              SessionID
	UserID          UserID
	GameID          GameID
	StartTime       time.Time
	EndTime         *time.Time // nil until ended
	Duration        *float64   // seconds, nil until ended
	Score           *int       // nil until ended
	Completed       bool
	DifficultyLevel Difficulty
	SessionData     SessionData
}

// NewGameSession creates an open session starting at now
func NewGameSession(userID UserID, gameID GameID, difficulty Difficulty, now time.Time) *GameSession {
	return &GameSession{
		UserID:          userID,
		GameID:          gameID,
		StartTime:       now,
		DifficultyLevel: difficulty,
		SessionData:     SessionData{},
	}
}

// IsEnded returns true once End has been called
func (s *GameSession) IsEnded() bool {
	return s.EndTime != nil
}

// End closes the session at now. Supplied data is merged into the telemetry
// mapping, overwriting existing keys. An end time before the start time is
// clamped to the start time.
func (s *GameSession) End(now time.Time, score int, completed bool, data SessionData) {
	if now.Before(s.StartTime) {
		now = s.StartTime
	}
	duration := now.Sub(s.StartTime).Seconds()

	s.EndTime = &now
	s.Duration = &duration
	s.Score = &score
	s.Completed = completed

	if s.SessionData == nil {
		s.SessionData = SessionData{}
	}
	maps.Copy(s.SessionData, data)
}

// EncodeSessionData serialises telemetry into the string blob stored with a session row.
// Floats are always written with a fraction or exponent so they decode as float64.
func EncodeSessionData(data SessionData) (string, error) {
	if data == nil {
		data = SessionData{}
	}
	b, err := json.Marshal(markFloats(map[string]any(data)))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// markFloats returns a copy of v with floats replaced by json.Numbers that
// keep a decimal point, so 2.0 is written as 2.0 rather than 2
func markFloats(v any) any {
	switch val := v.(type) {
	case float64:
		return floatNumber(val, 64)
	case float32:
		return floatNumber(float64(val), 32)
	case SessionData:
		return markFloats(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = markFloats(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = markFloats(inner)
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = floatNumber(inner, 64)
		}
		return out
	default:
		return v
	}
}

func floatNumber(f float64, bitSize int) any {
	// json.Marshal rejects these itself
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	text := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return json.Number(text)
}

// DecodeSessionData parses a stored blob. Empty or malformed blobs decode to
// an empty mapping. Numbers written without a fraction or exponent decode as
// int, all others as float64.
func DecodeSessionData(blob string) SessionData {
	if blob == "" {
		return SessionData{}
	}

	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return SessionData{}
	}

	data := make(SessionData, len(raw))
	for k, v := range raw {
		data[k] = normalizeNumbers(v)
	}
	return data
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, inner := range val {
			val[k] = normalizeNumbers(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = normalizeNumbers(inner)
		}
		return val
	default:
		return v
	}
}
