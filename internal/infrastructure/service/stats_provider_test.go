package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// FAKES
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	docs []*progress.CourseProgress
}

func (r *fakeProgressRepo) Load(context.Context, shared.UserID, shared.CourseID) (*progress.CourseProgress, error) {
	return nil, shared.ErrProgressNotFound
}

func (r *fakeProgressRepo) Save(context.Context, *progress.CourseProgress, int64) error {
	return nil
}

func (r *fakeProgressRepo) ListByUser(context.Context, shared.UserID) ([]*progress.CourseProgress, error) {
	return r.docs, nil
}

type fakeStreakRepo struct {
	streak *progress.Streak
}

func (r *fakeStreakRepo) Load(context.Context, shared.UserID) (*progress.Streak, error) {
	if r.streak == nil {
		return nil, shared.ErrStreakNotFound
	}
	return r.streak, nil
}

func (r *fakeStreakRepo) Save(context.Context, *progress.Streak, int64) error { return nil }

func (r *fakeStreakRepo) ListAtRisk(context.Context, int) ([]*progress.Streak, error) {
	return nil, nil
}

type fakeEnrollmentRepo struct {
	completed int
}

func (r *fakeEnrollmentRepo) Save(context.Context, *course.Enrollment) error { return nil }

func (r *fakeEnrollmentRepo) Get(context.Context, shared.UserID, shared.CourseID) (*course.Enrollment, error) {
	return nil, shared.ErrNotEnrolled
}

func (r *fakeEnrollmentRepo) ListByUser(context.Context, shared.UserID) ([]*course.Enrollment, error) {
	return nil, nil
}

func (r *fakeEnrollmentRepo) CountCompletedByUser(context.Context, shared.UserID) (int, error) {
	return r.completed, nil
}

type fakeQuizRepo struct {
	attempts []*assessment.QuizAttempt
	passed   int
}

func (r *fakeQuizRepo) SaveQuizAttempt(context.Context, *assessment.QuizAttempt) error { return nil }

func (r *fakeQuizRepo) ListByConcept(_ context.Context, _ shared.UserID, conceptID shared.ConceptID) ([]*assessment.QuizAttempt, error) {
	var out []*assessment.QuizAttempt
	for _, a := range r.attempts {
		if a.ConceptID == conceptID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeQuizRepo) CountPassedByUser(context.Context, shared.UserID) (int, error) {
	return r.passed, nil
}

type fakeAttemptRepo struct {
	passed int
}

func (r *fakeAttemptRepo) SaveAttempt(context.Context, *assessment.Attempt) error { return nil }

func (r *fakeAttemptRepo) NextAttemptNumber(context.Context, shared.UserID, string) (int, error) {
	return 1, nil
}

func (r *fakeAttemptRepo) ListAttempts(context.Context, shared.UserID, string) ([]*assessment.Attempt, error) {
	return nil, nil
}

func (r *fakeAttemptRepo) ListAllGraded(context.Context, string) ([]*assessment.Attempt, error) {
	return nil, nil
}

func (r *fakeAttemptRepo) CountPassedByUser(context.Context, shared.UserID) (int, error) {
	return r.passed, nil
}

type fakeStructureProvider struct {
	structures map[shared.CourseID]*course.Structure
}

func (p *fakeStructureProvider) GetStructure(_ context.Context, courseID shared.CourseID) (*course.Structure, error) {
	s, ok := p.structures[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FIXTURES
// ─────────────────────────────────────────────────────────────────────────────

func codingStructure() *course.Structure {
	return &course.Structure{
		CourseID: "go-basics",
		Title:    "Go Basics",
		Level:    course.LevelBeginner,
		Version:  1,
		Concepts: []course.Concept{
			{
				ID:    "c-syntax",
				Title: "Syntax",
				Order: 1,
				Topics: []course.Topic{
					{ID: "t-video", Title: "Intro", Kind: course.TopicKindVideo},
					{ID: "t-fizz", Title: "FizzBuzz", Kind: course.TopicKindCoding},
					{ID: "t-sort", Title: "Sorting", Kind: course.TopicKindCoding},
				},
			},
		},
	}
}

func progressDoc() *progress.CourseProgress {
	now := time.Now()
	return &progress.CourseProgress{
		UserID:   "user-1",
		CourseID: "go-basics",
		Concepts: []progress.ConceptProgress{
			{
				ConceptID: "c-syntax",
				Topics: []progress.TopicProgress{
					{TopicID: "t-video", Completed: true, TimeSpentSeconds: 600, CompletedAt: &now},
					{TopicID: "t-fizz", Completed: true, TimeSpentSeconds: 5400, CompletedAt: &now},
					{TopicID: "t-sort", Completed: false, TimeSpentSeconds: 1800},
				},
				Progress: 100.0 * 2 / 3,
			},
		},
		TotalTimeSeconds: 7800,
		Version:          3,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// STATS PROVIDER
// ─────────────────────────────────────────────────────────────────────────────

func TestStatsProvider_Snapshot(t *testing.T) {
	provider := NewStatsProvider(
		&fakeProgressRepo{docs: []*progress.CourseProgress{progressDoc()}},
		&fakeStreakRepo{streak: &progress.Streak{UserID: "user-1", CurrentStreak: 12, LongestStreak: 20}},
		&fakeEnrollmentRepo{completed: 2},
		&fakeQuizRepo{passed: 7},
		&fakeAttemptRepo{passed: 3},
		&fakeStructureProvider{structures: map[shared.CourseID]*course.Structure{
			"go-basics": codingStructure(),
		}},
		nil,
	)

	snapshot, err := provider.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, shared.UserID("user-1"), snapshot.UserID)
	assert.Equal(t, 2, snapshot.Stats[achievement.CriteriaTopicsCompleted])
	assert.Equal(t, 0, snapshot.Stats[achievement.CriteriaConceptsCompleted])
	assert.Equal(t, 1, snapshot.Stats[achievement.CriteriaProblemsSolved])
	assert.Equal(t, 2, snapshot.Stats[achievement.CriteriaTimeSpentHours])
	assert.Equal(t, 2, snapshot.Stats[achievement.CriteriaCoursesCompleted])
	assert.Equal(t, 12, snapshot.Stats[achievement.CriteriaStreakDays])
	assert.Equal(t, 7, snapshot.Stats[achievement.CriteriaQuizzesPassed])
	assert.Equal(t, 3, snapshot.Stats[achievement.CriteriaMockTestsPassed])
}

func TestStatsProvider_NoStreakYieldsZero(t *testing.T) {
	provider := NewStatsProvider(
		&fakeProgressRepo{},
		&fakeStreakRepo{},
		&fakeEnrollmentRepo{},
		&fakeQuizRepo{},
		&fakeAttemptRepo{},
		&fakeStructureProvider{},
		nil,
	)

	snapshot, err := provider.Snapshot(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Stats[achievement.CriteriaStreakDays])
	assert.Equal(t, 0, snapshot.Stats[achievement.CriteriaTopicsCompleted])
}

func TestStatsProvider_MissingStructureSkipsProblems(t *testing.T) {
	// The structure provider knows nothing, so coding problems cannot
	// be classified. Topic and time counters still come through.
	provider := NewStatsProvider(
		&fakeProgressRepo{docs: []*progress.CourseProgress{progressDoc()}},
		&fakeStreakRepo{},
		&fakeEnrollmentRepo{},
		&fakeQuizRepo{},
		&fakeAttemptRepo{},
		&fakeStructureProvider{},
		nil,
	)

	snapshot, err := provider.Snapshot(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Stats[achievement.CriteriaTopicsCompleted])
	assert.Equal(t, 0, snapshot.Stats[achievement.CriteriaProblemsSolved])
	assert.Equal(t, 2, snapshot.Stats[achievement.CriteriaTimeSpentHours])
}

// ─────────────────────────────────────────────────────────────────────────────
// HISTORY PROVIDER
// ─────────────────────────────────────────────────────────────────────────────

func TestHistoryProvider_QuizHistoryAveragesScores(t *testing.T) {
	provider := NewHistoryProvider(
		&fakeQuizRepo{attempts: []*assessment.QuizAttempt{
			{ID: "qa-1", UserID: "user-1", ConceptID: "c-syntax", ScorePct: 80, Passed: true},
			{ID: "qa-2", UserID: "user-1", ConceptID: "c-syntax", ScorePct: 60, Passed: false},
			{ID: "qa-3", UserID: "user-1", ConceptID: "c-other", ScorePct: 100, Passed: true},
		}},
		&fakeProgressRepo{},
		&fakeStructureProvider{},
	)

	history, err := provider.QuizHistory(context.Background(), "user-1", "c-syntax")
	require.NoError(t, err)
	assert.Equal(t, 2, history.AttemptCount)
	assert.InDelta(t, 70.0, history.AverageScore, 0.001)
}

func TestHistoryProvider_QuizHistoryEmpty(t *testing.T) {
	provider := NewHistoryProvider(&fakeQuizRepo{}, &fakeProgressRepo{}, &fakeStructureProvider{})

	history, err := provider.QuizHistory(context.Background(), "user-1", "c-none")
	require.NoError(t, err)
	assert.False(t, history.HasData())
}

func TestHistoryProvider_ProblemHistoryCountsCodingTopics(t *testing.T) {
	provider := NewHistoryProvider(
		&fakeQuizRepo{},
		&fakeProgressRepo{docs: []*progress.CourseProgress{progressDoc()}},
		&fakeStructureProvider{structures: map[shared.CourseID]*course.Structure{
			"go-basics": codingStructure(),
		}},
	)

	history, err := provider.ProblemHistory(context.Background(), "user-1", "c-syntax")
	require.NoError(t, err)
	assert.Equal(t, 2, history.TotalProblems)
	assert.Equal(t, 1, history.SolvedProblems)
}

func TestHistoryProvider_ProblemHistoryUnknownConcept(t *testing.T) {
	provider := NewHistoryProvider(
		&fakeQuizRepo{},
		&fakeProgressRepo{docs: []*progress.CourseProgress{progressDoc()}},
		&fakeStructureProvider{structures: map[shared.CourseID]*course.Structure{
			"go-basics": codingStructure(),
		}},
	)

	history, err := provider.ProblemHistory(context.Background(), "user-1", "c-unknown")
	require.NoError(t, err)
	assert.False(t, history.HasData())
}

// ─────────────────────────────────────────────────────────────────────────────
// DEFINITION CATALOG
// ─────────────────────────────────────────────────────────────────────────────

func TestDefinitionCatalog_ServesDefaults(t *testing.T) {
	catalog, err := NewDefaultDefinitionCatalog()
	require.NoError(t, err)

	defs, err := catalog.ListDefinitions(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, len(achievement.DefaultDefinitions()))

	def, err := catalog.GetDefinition(context.Background(), "first-steps")
	require.NoError(t, err)
	assert.Equal(t, "First Steps", def.Title)

	_, err = catalog.GetDefinition(context.Background(), "no-such-achievement")
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)
}

func TestDefinitionCatalog_RejectsInvalidDefinitions(t *testing.T) {
	defs := achievement.DefaultDefinitions()
	defs = append(defs, achievement.Achievement{ID: "broken", Criteria: achievement.Criteria{Type: "bogus"}})

	_, err := NewDefinitionCatalog(defs)
	assert.Error(t, err)
}
