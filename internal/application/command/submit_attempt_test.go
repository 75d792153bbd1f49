package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func interviewTest(t *testing.T) *assessment.MockTest {
	t.Helper()
	test, err := assessment.NewMockTest("mt-1", "Interview prep", []assessment.Question{
		{
			ID: "q1", Kind: assessment.QuestionMCQ, Points: 5,
			Topic: "slices", Difficulty: assessment.DifficultyEasy,
			Options:        []string{"a", "b", "c"},
			CorrectAnswers: []string{"b"},
		},
		{
			ID: "q2", Kind: assessment.QuestionMultipleSelect, Points: 5,
			Topic: "maps", Difficulty: assessment.DifficultyMedium,
			Options:        []string{"a", "b", "c", "d"},
			CorrectAnswers: []string{"a", "c"},
		},
		{
			ID: "q3", Kind: assessment.QuestionCoding, Points: 10,
			Topic: "algorithms", Difficulty: assessment.DifficultyHard,
			TestCases: []assessment.TestCase{
				{ID: "tc1"}, {ID: "tc2", Hidden: true},
			},
		},
	}, 60)
	require.NoError(t, err)
	test.CourseID = "go-advanced"
	test.MaxAttempts = 3
	return test
}

type attemptFixture struct {
	handler  *SubmitAttemptHandler
	attempts *fakeAttemptRepo
	scores   *fakeScoreDistribution
	userAch  *fakeUserAchievementRepo
	stats    *fakeStatsProvider
	pub      *fakePublisher
}

func newAttemptFixture(t *testing.T, test *assessment.MockTest) *attemptFixture {
	t.Helper()
	f := &attemptFixture{
		attempts: &fakeAttemptRepo{},
		scores:   newFakeScoreDistribution(),
		userAch:  newFakeUserAchievementRepo(),
		stats:    newFakeStatsProvider(),
		pub:      &fakePublisher{},
	}
	structure, err := course.NewStructure("go-advanced", "Go Advanced", course.LevelAdvanced, []course.Concept{
		{ID: "c1", Title: "Concurrency", Order: 1, Topics: []course.Topic{
			{ID: "t1", Title: "Goroutines", Kind: course.TopicKindVideo},
		}},
	})
	require.NoError(t, err)
	defs, err := achievement.LoadDefinitions(achievement.DefaultDefinitions())
	require.NoError(t, err)
	f.handler = NewSubmitAttemptHandler(
		newFakeTestRepo(test), f.attempts, f.scores,
		newFakeStructureProvider(structure),
		achievement.NewEvaluator(defs), f.userAch, f.stats,
		f.pub, testLogger(),
	)
	return f
}

func fullMarksResponses() []AttemptResponse {
	return []AttemptResponse{
		{QuestionID: "q1", SelectedAnswers: []string{"b"}},
		{QuestionID: "q2", SelectedAnswers: []string{"c", "a"}},
		{QuestionID: "q3", TestCaseResults: []assessment.TestCaseResult{
			{TestCaseID: "tc1", Passed: true},
			{TestCaseID: "tc2", Passed: true},
		}},
	}
}

func TestSubmitAttempt_GradesAndRanks(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))

	result, err := f.handler.Handle(context.Background(), SubmitAttemptCommand{
		UserID:      "user-1",
		MockTestID:  "mt-1",
		Responses:   fullMarksResponses(),
		SubmittedAt: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AttemptNumber)
	assert.InDelta(t, 100.0, result.TotalScore, 0.001)
	assert.True(t, result.Passed)
	// First submitter ranks at the top.
	assert.InDelta(t, 100.0, result.Percentile, 0.001)
	assert.Contains(t, f.pub.typesSeen(), shared.EventAttemptGraded)
}

func TestSubmitAttempt_PercentileAgainstPriorScores(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))
	ctx := context.Background()
	require.NoError(t, f.scores.RecordScore(ctx, "mt-1", "a1", 20))
	require.NoError(t, f.scores.RecordScore(ctx, "mt-1", "a2", 40))
	require.NoError(t, f.scores.RecordScore(ctx, "mt-1", "a3", 90))

	// Half marks: q1 correct, q2 wrong, hidden case fails q3.
	result, err := f.handler.Handle(ctx, SubmitAttemptCommand{
		UserID:     "user-1",
		MockTestID: "mt-1",
		Responses: []AttemptResponse{
			{QuestionID: "q1", SelectedAnswers: []string{"b"}},
			{QuestionID: "q2", SelectedAnswers: []string{"a"}},
			{QuestionID: "q3", TestCaseResults: []assessment.TestCaseResult{
				{TestCaseID: "tc1", Passed: true},
				{TestCaseID: "tc2", Passed: false},
			}},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 25.0, result.TotalScore, 0.001)
	assert.False(t, result.Passed)
	// Strictly lower: 20. Total prior: 3.
	assert.InDelta(t, 100.0/3.0, result.Percentile, 0.001)

	total, err := f.scores.CountTotal(ctx, "mt-1")
	require.NoError(t, err)
	assert.Equal(t, 4, total, "submitted score joins the distribution afterwards")
}

func TestSubmitAttempt_AttemptNumbersIncrease(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		result, err := f.handler.Handle(ctx, SubmitAttemptCommand{
			UserID:     "user-1",
			MockTestID: "mt-1",
			Responses:  fullMarksResponses(),
		})
		require.NoError(t, err)
		assert.Equal(t, want, result.AttemptNumber)
	}

	_, err := f.handler.Handle(ctx, SubmitAttemptCommand{
		UserID:     "user-1",
		MockTestID: "mt-1",
		Responses:  fullMarksResponses(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSubmitAttempt_UnknownTest(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))

	_, err := f.handler.Handle(context.Background(), SubmitAttemptCommand{
		UserID:     "user-1",
		MockTestID: "nope",
		Responses:  fullMarksResponses(),
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestSubmitAttempt_AdvancedPassFeedsInterviewReady(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))
	f.stats.stats[achievement.CriteriaMockTestsPassed] = 5

	result, err := f.handler.Handle(context.Background(), SubmitAttemptCommand{
		UserID:     "user-1",
		MockTestID: "mt-1",
		Responses:  fullMarksResponses(),
	})
	require.NoError(t, err)

	require.Len(t, result.Unlocks, 1)
	assert.Equal(t, "interview-ready", result.Unlocks[0].AchievementID)
}

func TestSubmitAttempt_UnlockTimestampIsSubmissionTime(t *testing.T) {
	f := newAttemptFixture(t, interviewTest(t))
	f.stats.stats[achievement.CriteriaMockTestsPassed] = 5

	submittedAt := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	result, err := f.handler.Handle(context.Background(), SubmitAttemptCommand{
		UserID:      "user-1",
		MockTestID:  "mt-1",
		Responses:   fullMarksResponses(),
		SubmittedAt: submittedAt,
	})
	require.NoError(t, err)
	require.Len(t, result.Unlocks, 1)

	saved, err := f.userAch.Load(context.Background(), "user-1", "interview-ready")
	require.NoError(t, err)
	require.NotNil(t, saved.UnlockedAt)
	assert.Equal(t, submittedAt, *saved.UnlockedAt)
}
