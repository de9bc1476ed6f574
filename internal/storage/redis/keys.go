package redis

import (
	"fmt"

	"github.com/mcoot/archive/internal/model"
)

// Key prefix for all archive data
const keyPrefix = "archive"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// emailIndexKey returns the Redis key for the email -> user_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// sessionKey returns the Redis key for a GameSession
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%d", keyPrefix, id)
}

// userSessionsIndexKey returns the Redis key for the ZSET of a user's sessions,
// scored by start time in milliseconds
func userSessionsIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:user_sessions:%d", keyPrefix, userID)
}

// sequenceKey returns the Redis key of the INCR counter for an entity type
func sequenceKey(entity string) string {
	return fmt.Sprintf("%s:seq:%s", keyPrefix, entity)
}

// sessionMember formats a session ID as a ZSET member. Zero padding makes
// members with equal start times order by ID.
func sessionMember(id model.SessionID) string {
	return fmt.Sprintf("%020d", id)
}
