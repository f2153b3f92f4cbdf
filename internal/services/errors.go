package services

import (
	"errors"

	apperrors "github.com/prepdeck/cbe-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Paper errors
	ErrPaperNotFound = errors.New("paper not found")
	ErrPaperFetch    = errors.New("paper fetch failed")
	ErrPaperInvalid  = errors.New("paper definition is invalid")

	// Runner session errors
	ErrSessionNotFound         = errors.New("runner session not found")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrQuestionNotOnPaper      = errors.New("question is not on this paper")

	// Summary errors
	ErrResultMissing = errors.New("no submitted result for paper")
)

// Use shared validation errors from the errors package.
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a field-level validation error using the shared
// type.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if err represents a "not found" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaperNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsFetch checks if err represents a transport failure, recovered only by an
// explicit user retry.
func IsFetch(err error) bool {
	return errors.Is(err, ErrPaperFetch)
}

// IsConflict checks if err represents a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptAlreadySubmitted)
}

// IsValidation checks if err represents a validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrPaperInvalid) {
		return true
	}
	var many apperrors.ValidationErrors
	if errors.As(err, &many) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}
