package domain

import "errors"

// Domain errors
var (
	ErrDraftNotFound    = errors.New("draft not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateFileGone = errors.New("template file not found")
	// ErrVersionConflict is returned by a repository when an insert collides
	// with an existing (user, template, version) row.
	ErrVersionConflict = errors.New("draft version already exists")
	ErrInvalidToken    = errors.New("invalid token")
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
