package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown ids or slugs, and for inactive quizzes on the public path.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a payload is missing fields or is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a write collides with existing data.
	ErrConflict = errors.New("conflict")

	ErrQuizNotFound       = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound   = fmt.Errorf("question %w", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)

	// ErrSlugTaken indicates another quiz already owns the slug.
	ErrSlugTaken = fmt.Errorf("%w: slug already in use", ErrConflict)
	// ErrOrderTaken indicates another question of the quiz already uses the order index.
	ErrOrderTaken = &ValidationError{Field: "order", Message: "already used by another question in this quiz"}
)

// ValidationError describes a single rejected field.
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

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
