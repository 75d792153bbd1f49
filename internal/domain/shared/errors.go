// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrVersionConflict = errors.New("version conflict")
	ErrConcurrency     = errors.New("concurrent modification retries exhausted")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "achievement", "assessment"
	Op      string // Operation that failed, e.g., "ApplyEvent", "Grade"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrProgressNotFound    = NewDomainError("progress", "Load", ErrNotFound, "progress record not found")
	ErrConceptNotInCourse  = NewDomainError("progress", "ApplyEvent", ErrNotFound, "concept not in course structure")
	ErrTopicNotInConcept   = NewDomainError("progress", "ApplyEvent", ErrNotFound, "topic not in concept structure")
	ErrStreakNotFound      = NewDomainError("progress", "LoadStreak", ErrNotFound, "streak record not found")
	ErrNegativeTimeSpent   = NewDomainError("progress", "Validate", ErrNegativeValue, "time spent cannot be negative")
	ErrUnknownActivityKind = NewDomainError("progress", "Validate", ErrValidation, "unknown activity kind")
)

// Achievement domain errors
var (
	ErrAchievementNotFound     = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrUserAchievementNotFound = NewDomainError("achievement", "FindUser", ErrNotFound, "user achievement not found")
	ErrInvalidCriteria         = NewDomainError("achievement", "Validate", ErrInvalidEntity, "invalid achievement criteria")
	ErrStepsNotAscending       = NewDomainError("achievement", "Validate", ErrInvalidEntity, "progress steps must strictly increase by target")
	ErrAchievementCompleted    = NewDomainError("achievement", "Unlock", ErrAlreadyProcessed, "achievement already completed")
)

// Assessment domain errors
var (
	ErrMockTestNotFound = NewDomainError("assessment", "Find", ErrNotFound, "mock test not found")
	ErrAttemptNotFound  = NewDomainError("assessment", "FindAttempt", ErrNotFound, "attempt not found")
	ErrAttemptSubmitted = NewDomainError("assessment", "Submit", ErrAlreadyProcessed, "attempt already submitted")
	ErrQuestionNotFound = NewDomainError("assessment", "Grade", ErrNotFound, "question not found in test")
	ErrAttemptsExceeded = NewDomainError("assessment", "Start", ErrInvalidState, "maximum attempts exceeded")
)

// Course / enrollment errors
var (
	ErrCourseNotFound     = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrNotEnrolled        = NewDomainError("course", "CheckEnrollment", ErrNotFound, "user not enrolled in course")
	ErrAlreadyEnrolled    = NewDomainError("course", "Enroll", ErrAlreadyExists, "user already enrolled in course")
	ErrEmptyCourseTree    = NewDomainError("course", "Validate", ErrInvalidEntity, "course structure has no concepts")
	ErrStructureNotCached = NewDomainError("course", "LoadStructure", ErrNotFound, "course structure not cached")
)

// Learning path errors
var (
	ErrPathNotFound       = NewDomainError("learningpath", "Find", ErrNotFound, "learning path not found")
	ErrPathStepNotFound   = NewDomainError("learningpath", "FindStep", ErrNotFound, "path step not found")
	ErrPrerequisiteLocked = NewDomainError("learningpath", "StartStep", ErrInvalidState, "prerequisite steps not completed")
)

// External service errors
var (
	ErrCatalogUnavailable     = NewDomainError("catalog", "Request", ErrServiceUnavailable, "course catalog is unavailable")
	ErrCatalogTimeout         = NewDomainError("catalog", "Request", ErrTimeout, "course catalog request timeout")
	ErrCatalogInvalidResponse = NewDomainError("catalog", "Parse", ErrInvalidFormat, "invalid response from course catalog")
	ErrNotificationFailed     = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsVersionConflict checks if the error is an optimistic-lock conflict.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsExternalService checks if the error comes from an external collaborator.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried safely. Apply cycles are
// idempotent, so conflicts and transient upstream failures qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
