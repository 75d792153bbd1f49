package command

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COURSE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCourseCommand enrolls a user into a course.
type EnrollCourseCommand struct {
	// UserID is the learner to enroll.
	UserID string

	// CourseID is the course to enroll into.
	CourseID string

	// EnrolledAt defaults to now.
	EnrolledAt time.Time
}

// Validate validates the command.
func (c EnrollCourseCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("course", "Enroll", shared.ErrInvalidID,
			"user id is required")
	}
	if c.CourseID == "" {
		return shared.NewDomainError("course", "Enroll", shared.ErrInvalidID,
			"course id is required")
	}
	return nil
}

// EnrollCourseResult describes the enrollment outcome.
type EnrollCourseResult struct {
	Enrollment *course.Enrollment

	// AlreadyEnrolled is true when an active enrollment existed and
	// the command was a no-op.
	AlreadyEnrolled bool
}

// EnrollCourseHandler handles the EnrollCourse command.
type EnrollCourseHandler struct {
	enrollments course.EnrollmentRepository
	structures  course.StructureProvider
	log         *logger.Logger
}

// NewEnrollCourseHandler creates a new EnrollCourseHandler.
func NewEnrollCourseHandler(
	enrollments course.EnrollmentRepository,
	structures course.StructureProvider,
	log *logger.Logger,
) *EnrollCourseHandler {
	return &EnrollCourseHandler{
		enrollments: enrollments,
		structures:  structures,
		log:         log,
	}
}

// Handle enrolls the user. The course must exist in the catalog;
// re-enrolling while active is idempotent.
func (h *EnrollCourseHandler) Handle(ctx context.Context, cmd EnrollCourseCommand) (*EnrollCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.EnrolledAt.IsZero() {
		cmd.EnrolledAt = time.Now()
	}

	userID := shared.UserID(cmd.UserID)
	courseID := shared.CourseID(cmd.CourseID)

	if _, err := h.structures.GetStructure(ctx, courseID); err != nil {
		return nil, err
	}

	existing, err := h.enrollments.Get(ctx, userID, courseID)
	switch {
	case err == nil:
		if existing.IsActive() {
			return &EnrollCourseResult{Enrollment: existing, AlreadyEnrolled: true}, nil
		}
	case shared.IsNotFound(err):
	default:
		return nil, err
	}

	enrollment, err := course.NewEnrollment(userID, courseID, cmd.EnrolledAt)
	if err != nil {
		return nil, err
	}
	if err := h.enrollments.Save(ctx, enrollment); err != nil {
		return nil, err
	}

	h.log.Info("user enrolled",
		logger.UserID(cmd.UserID),
		logger.CourseID(cmd.CourseID))
	return &EnrollCourseResult{Enrollment: enrollment}, nil
}
