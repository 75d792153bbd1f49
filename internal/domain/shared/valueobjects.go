// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique learner identifier.
type UserID string

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// IsValid checks if the ID is usable.
func (u UserID) IsValid() bool {
	return !u.IsEmpty()
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user ID cannot be empty")
	}
	return uid, nil
}

// CourseID represents a unique course identifier.
type CourseID string

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// IsValid checks if the ID is usable.
func (c CourseID) IsValid() bool {
	return !c.IsEmpty()
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// ConceptID represents a concept within a course.
type ConceptID string

// IsEmpty checks if the ID is empty.
func (c ConceptID) IsEmpty() bool {
	return c == ""
}

// IsValid checks if the ID is usable.
func (c ConceptID) IsValid() bool {
	return !c.IsEmpty()
}

// String returns the string representation.
func (c ConceptID) String() string {
	return string(c)
}

// TopicID represents a single learnable topic (video, article, problem, quiz)
// inside a concept.
type TopicID string

// IsEmpty checks if the ID is empty.
func (t TopicID) IsEmpty() bool {
	return t == ""
}

// IsValid checks if the ID is usable.
func (t TopicID) IsValid() bool {
	return !t.IsEmpty()
}

// String returns the string representation.
func (t TopicID) String() string {
	return string(t)
}

// EventID represents a unique activity event identifier (UUID format).
type EventID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the event ID is a valid UUID.
func (e EventID) IsValid() bool {
	return uuidRegex.MatchString(string(e))
}

// String returns the string representation.
func (e EventID) String() string {
	return string(e)
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score represents a percentage score in [0, 100].
type Score float64

// IsValid checks if the score is within range.
func (s Score) IsValid() bool {
	return s >= 0 && s <= 100
}

// Float64 returns the underlying value.
func (s Score) Float64() float64 {
	return float64(s)
}

// Clamp forces the score into [0, 100].
func (s Score) Clamp() Score {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// String formats the score with one decimal.
func (s Score) String() string {
	return fmt.Sprintf("%.1f", float64(s))
}

// ═══════════════════════════════════════════════════════════════════════════
// Timezone Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Timezone is an IANA timezone name attached to a learner profile.
// Streak day boundaries are computed in this zone.
type Timezone string

// IsEmpty checks if the timezone is unset.
func (t Timezone) IsEmpty() bool {
	return t == ""
}

// Location resolves the timezone, falling back to UTC for unset or unknown
// names. Streak math must never fail on a bad timezone string.
func (t Timezone) Location() *time.Location {
	if t.IsEmpty() {
		return time.UTC
	}
	loc, err := time.LoadLocation(string(t))
	if err != nil {
		return time.UTC
	}
	return loc
}

// String returns the string representation.
func (t Timezone) String() string {
	return string(t)
}
