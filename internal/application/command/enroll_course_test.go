package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func newEnrollFixture(t *testing.T) (*EnrollCourseHandler, *fakeEnrollmentRepo) {
	t.Helper()
	enrollments := newFakeEnrollmentRepo()
	handler := NewEnrollCourseHandler(enrollments, newFakeStructureProvider(goBasics(t)), testLogger())
	return handler, enrollments
}

func TestEnrollCourse_CreatesActiveEnrollment(t *testing.T) {
	handler, enrollments := newEnrollFixture(t)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		UserID: "user-1", CourseID: "go-basics", EnrolledAt: at,
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyEnrolled)
	assert.Equal(t, course.EnrollmentActive, result.Enrollment.Status)
	assert.Equal(t, at, result.Enrollment.EnrolledAt)

	stored, err := enrollments.Get(context.Background(), "user-1", "go-basics")
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
}

func TestEnrollCourse_Idempotent(t *testing.T) {
	handler, _ := newEnrollFixture(t)
	ctx := context.Background()
	cmd := EnrollCourseCommand{UserID: "user-1", CourseID: "go-basics"}

	_, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	second, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEnrolled)
}

func TestEnrollCourse_UnknownCourse(t *testing.T) {
	handler, _ := newEnrollFixture(t)

	_, err := handler.Handle(context.Background(), EnrollCourseCommand{
		UserID: "user-1", CourseID: "no-such-course",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestEnrollCourse_ReEnrollAfterDrop(t *testing.T) {
	handler, enrollments := newEnrollFixture(t)
	ctx := context.Background()

	first, err := handler.Handle(ctx, EnrollCourseCommand{UserID: "user-1", CourseID: "go-basics"})
	require.NoError(t, err)
	require.NoError(t, first.Enrollment.Drop())
	require.NoError(t, enrollments.Save(ctx, first.Enrollment))

	second, err := handler.Handle(ctx, EnrollCourseCommand{UserID: "user-1", CourseID: "go-basics"})
	require.NoError(t, err)
	assert.False(t, second.AlreadyEnrolled)
	assert.Equal(t, course.EnrollmentActive, second.Enrollment.Status)
}
