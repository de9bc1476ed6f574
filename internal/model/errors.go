package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email is already registered")

	// Session errors
	ErrSessionNotFound = errors.New("game session not found")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
)
