package domain

import "errors"

// Domain errors
var (
	ErrMissingHeader      = errors.New("csv has no header row")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrDuplicateVersion   = errors.New("duplicate migration version")
	ErrMigrationNotFound  = errors.New("migration not found")
	ErrUnterminatedSQL    = errors.New("unterminated quote or comment")
	ErrNotConfigured      = errors.New("client not configured")
	ErrVerificationFailed = errors.New("verification failed")
	ErrInvalidToken       = errors.New("invalid token")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
