// Package course contains the course structure domain.
package course

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// StructureProvider resolves course structures. The primary implementation
// fetches from the course catalog service with a cache in front; the engine
// never owns course content, it only reads the shape.
type StructureProvider interface {
	// GetStructure returns the validated structure for a course.
	// Returns shared.ErrCourseNotFound if the catalog does not know the course.
	GetStructure(ctx context.Context, courseID shared.CourseID) (*Structure, error)
}

// StructureCache defines a cache for course structures.
// Implemented with Redis; structures change rarely so TTLs are long.
type StructureCache interface {
	// Get returns a cached structure, or shared.ErrStructureNotCached on miss.
	Get(ctx context.Context, courseID shared.CourseID) (*Structure, error)

	// Set caches a structure with the given TTL.
	Set(ctx context.Context, structure *Structure, ttl time.Duration) error

	// Invalidate drops a cached structure, forcing a catalog refetch.
	Invalidate(ctx context.Context, courseID shared.CourseID) error
}

// EnrollmentRepository persists learner enrollments.
type EnrollmentRepository interface {
	// Save persists an enrollment (create or update).
	Save(ctx context.Context, enrollment *Enrollment) error

	// Get returns the enrollment for a (user, course) pair.
	// Returns shared.ErrNotEnrolled if none exists.
	Get(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*Enrollment, error)

	// ListByUser returns all enrollments for a learner.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Enrollment, error)

	// CountCompletedByUser returns how many courses the learner has completed.
	// Used by achievement criteria of type courses_completed.
	CountCompletedByUser(ctx context.Context, userID shared.UserID) (int, error)
}
