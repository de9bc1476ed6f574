package auth

import (
	"regexp"
	"strings"
)

const (
	MinNameLength     = 3
	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// Validation is the result of checking one field. Message is empty when Valid.
type Validation struct {
	Valid   bool
	Message string
}

func valid() Validation {
	return Validation{Valid: true}
}

func invalid(message string) Validation {
	return Validation{Message: message}
}

// ValidateName requires at least MinNameLength characters after trimming
func ValidateName(name string) Validation {
	if len([]rune(strings.TrimSpace(name))) < MinNameLength {
		return invalid("Name must be at least 3 characters long.")
	}
	return valid()
}

func ValidateEmail(email string) Validation {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return invalid("Invalid email format.")
	}
	return valid()
}

func ValidatePassword(password string) Validation {
	if len(password) < MinPasswordLength {
		return invalid("Password must be at least 6 characters long.")
	}
	return valid()
}

func ValidatePasswordMatch(password, confirm string) Validation {
	if password != confirm {
		return invalid("Passwords don't match.")
	}
	return valid()
}

// ValidationError reports the first invalid field of a request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// check returns a ValidationError for the first failing validation
func check(fields ...fieldCheck) error {
	for _, f := range fields {
		if !f.result.Valid {
			return &ValidationError{Field: f.field, Message: f.result.Message}
		}
	}
	return nil
}

type fieldCheck struct {
	field  string
	result Validation
}
