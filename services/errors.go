package services

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("unable to authenticate with provided credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

// ValidationError beschreibt ein ungültiges Eingabefeld.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
