package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/learningpath"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// backendPath: two courses in sequence, then a mock test gated on both.
func backendPath() *learningpath.Path {
	return &learningpath.Path{
		ID:    "backend-track",
		Title: "Backend Track",
		Steps: []learningpath.Step{
			{ID: "s1", Order: 1, Type: learningpath.StepCourse, CourseID: "go-basics"},
			{ID: "s2", Order: 2, Type: learningpath.StepCourse, CourseID: "go-advanced", Prerequisites: []string{"s1"}},
			{ID: "s3", Order: 3, Type: learningpath.StepMockTest, MockTestID: "mt-1", Prerequisites: []string{"s1", "s2"}},
		},
	}
}

func pathFixture(docs []*progress.CourseProgress, attempts []*assessment.Attempt) *GetPathProgressHandler {
	progressRepo := &fakeProgressRepo{docs: map[string]*progress.CourseProgress{}}
	for _, doc := range docs {
		progressRepo.docs[progressRepo.key(doc.UserID, doc.CourseID)] = doc
	}
	return NewGetPathProgressHandler(
		&fakePathRepo{paths: map[string]*learningpath.Path{"backend-track": backendPath()}},
		progressRepo,
		&fakeAttemptRepo{attempts: attempts},
	)
}

func stepStatuses(t *testing.T, result *GetPathProgressResult) map[string]learningpath.StepStatus {
	t.Helper()
	out := make(map[string]learningpath.StepStatus, len(result.Progress.Steps))
	for _, step := range result.Progress.Steps {
		out[step.StepID] = step.Status
	}
	return out
}

func TestGetPathProgress_FreshUserSeesFirstStepAvailable(t *testing.T) {
	handler := pathFixture(nil, nil)

	result, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "backend-track",
	})
	require.NoError(t, err)

	statuses := stepStatuses(t, result)
	assert.Equal(t, learningpath.StepAvailable, statuses["s1"])
	assert.Equal(t, learningpath.StepLocked, statuses["s2"])
	assert.Equal(t, learningpath.StepLocked, statuses["s3"])
	assert.Equal(t, 0, result.Progress.CompletedSteps)
	assert.False(t, result.Progress.Completed)
}

func TestGetPathProgress_StartedCourseShowsInProgress(t *testing.T) {
	handler := pathFixture([]*progress.CourseProgress{
		{UserID: "user-1", CourseID: "go-basics"},
	}, nil)

	result, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "backend-track",
	})
	require.NoError(t, err)

	statuses := stepStatuses(t, result)
	assert.Equal(t, learningpath.StepInProgress, statuses["s1"])
	assert.Equal(t, learningpath.StepLocked, statuses["s2"])
}

func TestGetPathProgress_CompletionUnlocksDependents(t *testing.T) {
	handler := pathFixture([]*progress.CourseProgress{
		{UserID: "user-1", CourseID: "go-basics", Completed: true},
		{UserID: "user-1", CourseID: "go-advanced"},
	}, nil)

	result, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "backend-track",
	})
	require.NoError(t, err)

	statuses := stepStatuses(t, result)
	assert.Equal(t, learningpath.StepCompleted, statuses["s1"])
	assert.Equal(t, learningpath.StepInProgress, statuses["s2"])
	assert.Equal(t, learningpath.StepLocked, statuses["s3"], "mock test needs both courses")
	assert.InDelta(t, 100.0/3.0, result.Progress.OverallProgress, 0.001)
}

func TestGetPathProgress_PassedTestCompletesPath(t *testing.T) {
	handler := pathFixture([]*progress.CourseProgress{
		{UserID: "user-1", CourseID: "go-basics", Completed: true},
		{UserID: "user-1", CourseID: "go-advanced", Completed: true},
	}, []*assessment.Attempt{
		{UserID: "user-1", MockTestID: "mt-1", AttemptNumber: 1, Passed: false},
		{UserID: "user-1", MockTestID: "mt-1", AttemptNumber: 2, Passed: true},
	})

	result, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "backend-track",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Progress.CompletedSteps)
	assert.True(t, result.Progress.Completed)
	assert.Equal(t, 100.0, result.Progress.OverallProgress)
}

func TestGetPathProgress_AnotherUsersAttemptsDoNotCount(t *testing.T) {
	handler := pathFixture([]*progress.CourseProgress{
		{UserID: "user-1", CourseID: "go-basics", Completed: true},
		{UserID: "user-1", CourseID: "go-advanced", Completed: true},
	}, []*assessment.Attempt{
		{UserID: "user-2", MockTestID: "mt-1", AttemptNumber: 1, Passed: true},
	})

	result, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "backend-track",
	})
	require.NoError(t, err)

	statuses := stepStatuses(t, result)
	assert.Equal(t, learningpath.StepAvailable, statuses["s3"])
}

func TestGetPathProgress_UnknownPath(t *testing.T) {
	handler := pathFixture(nil, nil)

	_, err := handler.Handle(context.Background(), GetPathProgressQuery{
		UserID: "user-1", PathID: "missing",
	})
	assert.True(t, shared.IsNotFound(err))
}
