package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoQuestionTest(t *testing.T) *MockTest {
	t.Helper()
	test, err := NewMockTest("test-1", "Arrays Basics", []Question{
		{
			ID:             "q1",
			Kind:           QuestionMCQ,
			Points:         5,
			Topic:          "arrays",
			Difficulty:     DifficultyEasy,
			Options:        []string{"a", "b", "c"},
			CorrectAnswers: []string{"b"},
		},
		{
			ID:         "q2",
			Kind:       QuestionCoding,
			Points:     15,
			Topic:      "arrays",
			Difficulty: DifficultyMedium,
			TestCases: []TestCase{
				{ID: "tc1"},
				{ID: "tc2", Hidden: true},
			},
		},
	}, 60)
	require.NoError(t, err)
	return test
}

func TestGrade_MCQCorrectCodingIncorrect(t *testing.T) {
	// 5 pts MCQ correct + 15 pts coding incorrect out of 20 = 25.
	test := twoQuestionTest(t)
	attempt := &Attempt{
		ID:         "a1",
		UserID:     "user-1",
		MockTestID: "test-1",
		Responses: []Response{
			{QuestionID: "q1", SelectedAnswers: []string{"b"}},
			{QuestionID: "q2", TestCaseResults: []TestCaseResult{
				{TestCaseID: "tc1", Passed: true},
				{TestCaseID: "tc2", Passed: false},
			}},
		},
	}

	require.NoError(t, attempt.Grade(test, time.Now()))
	assert.InDelta(t, 25.0, attempt.TotalScore, 0.001)
	assert.False(t, attempt.Passed, "25 < passing score 60")
	assert.Equal(t, 5, attempt.Responses[0].PointsEarned)
	assert.Equal(t, 0, attempt.Responses[1].PointsEarned)
}

func TestGrade_HiddenTestCaseFailureFailsQuestion(t *testing.T) {
	test := twoQuestionTest(t)
	attempt := &Attempt{
		MockTestID: "test-1",
		Responses: []Response{
			{QuestionID: "q2", TestCaseResults: []TestCaseResult{
				{TestCaseID: "tc1", Passed: true},
				// tc2 (hidden) has no result, which counts as failed.
			}},
		},
	}
	require.NoError(t, attempt.Grade(test, time.Now()))
	assert.False(t, attempt.Responses[0].Correct)
}

func TestGrade_MultipleSelectIsExactSetMatch(t *testing.T) {
	test, err := NewMockTest("test-2", "Sets", []Question{{
		ID:             "q1",
		Kind:           QuestionMultipleSelect,
		Points:         10,
		Options:        []string{"a", "b", "c", "d"},
		CorrectAnswers: []string{"a", "c"},
	}}, 50)
	require.NoError(t, err)

	cases := []struct {
		name     string
		selected []string
		correct  bool
	}{
		{"exact match", []string{"a", "c"}, true},
		{"order ignored", []string{"c", "a"}, true},
		{"duplicates collapsed", []string{"a", "a", "c"}, true},
		{"missing answer", []string{"a"}, false},
		{"extra answer", []string{"a", "b", "c"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		attempt := &Attempt{
			MockTestID: "test-2",
			Responses:  []Response{{QuestionID: "q1", SelectedAnswers: tc.selected}},
		}
		require.NoError(t, attempt.Grade(test, time.Now()), tc.name)
		assert.Equal(t, tc.correct, attempt.Responses[0].Correct, tc.name)
	}
}

func TestGrade_IsImmutableOnceGraded(t *testing.T) {
	test := twoQuestionTest(t)
	attempt := &Attempt{
		MockTestID: "test-1",
		Responses:  []Response{{QuestionID: "q1", SelectedAnswers: []string{"b"}}},
	}
	require.NoError(t, attempt.Grade(test, time.Now()))
	assert.ErrorIs(t, attempt.Grade(test, time.Now()), ErrAlreadyGraded)
}

func TestGrade_UnknownQuestionRejectsWholeAttempt(t *testing.T) {
	test := twoQuestionTest(t)
	attempt := &Attempt{
		MockTestID: "test-1",
		Responses:  []Response{{QuestionID: "nope", SelectedAnswers: []string{"b"}}},
	}
	assert.ErrorIs(t, attempt.Grade(test, time.Now()), ErrResponseMismatch)
	assert.False(t, attempt.IsGraded(), "failed grading leaves the attempt unsubmitted")
}

func TestPercentile(t *testing.T) {
	assert.InDelta(t, 100.0, Percentile(50, nil), 0.001, "first attempt ranks at 100")

	prior := []float64{20, 40, 60, 80}
	assert.InDelta(t, 50.0, Percentile(50, prior), 0.001)
	assert.InDelta(t, 0.0, Percentile(10, prior), 0.001)
	assert.InDelta(t, 100.0, Percentile(95, prior), 0.001)
	// Ties do not count as strictly lower.
	assert.InDelta(t, 25.0, Percentile(40, prior), 0.001)
}

func TestAnalyze_TopicAndDifficultyBreakdown(t *testing.T) {
	test, err := NewMockTest("test-3", "Mixed", []Question{
		{ID: "q1", Kind: QuestionMCQ, Points: 5, Topic: "arrays", Difficulty: DifficultyEasy,
			CorrectAnswers: []string{"a"}},
		{ID: "q2", Kind: QuestionMCQ, Points: 5, Topic: "arrays", Difficulty: DifficultyMedium,
			CorrectAnswers: []string{"a"}},
		{ID: "q3", Kind: QuestionMCQ, Points: 5, Topic: "graphs", Difficulty: DifficultyHard,
			CorrectAnswers: []string{"a"}},
	}, 50)
	require.NoError(t, err)

	attempt := &Attempt{
		MockTestID: "test-3",
		Responses: []Response{
			{QuestionID: "q1", SelectedAnswers: []string{"a"}},
			{QuestionID: "q2", SelectedAnswers: []string{"a"}},
			{QuestionID: "q3", SelectedAnswers: []string{"x"}},
		},
	}
	require.NoError(t, attempt.Grade(test, time.Now()))

	analysis := Analyze(test, attempt)
	require.Len(t, analysis.Topics, 2)
	assert.Equal(t, "arrays", analysis.Topics[0].Topic)
	assert.InDelta(t, 100.0, analysis.Topics[0].Accuracy, 0.001)
	assert.InDelta(t, 0.0, analysis.Topics[1].Accuracy, 0.001)
	assert.Equal(t, []string{"arrays"}, analysis.StrongTopics)
	assert.Equal(t, []string{"graphs"}, analysis.WeakTopics)
	require.Len(t, analysis.Difficulties, 3)
}

func TestBuildTestStats(t *testing.T) {
	now := time.Now()
	attempts := []*Attempt{
		{TotalScore: 80, Passed: true, SubmittedAt: &now},
		{TotalScore: 40, Passed: false, SubmittedAt: &now},
		{TotalScore: 60, Passed: true, SubmittedAt: &now},
		{TotalScore: 99}, // ungraded, ignored
	}
	stats := BuildTestStats("test-1", attempts)
	assert.Equal(t, 3, stats.TotalAttempts)
	assert.InDelta(t, 60.0, stats.AverageScore, 0.001)
	assert.InDelta(t, 66.666, stats.PassRate, 0.01)
	assert.InDelta(t, 80.0, stats.HighestScore, 0.001)
}

func TestGradeQuiz_MapsOntoCourseLocation(t *testing.T) {
	test, err := NewMockTest("quiz-1", "Concept Quiz", []Question{{
		ID: "q1", Kind: QuestionMCQ, Points: 10, CorrectAnswers: []string{"a"},
	}}, 70)
	require.NoError(t, err)

	attempt := &Attempt{ID: "qa-1", UserID: "user-1", MockTestID: "quiz-1",
		Responses: []Response{{QuestionID: "q1", SelectedAnswers: []string{"a"}}}}

	quiz, err := GradeQuiz(test, attempt, "course-1", "c-0", "t-quiz", time.Now())
	require.NoError(t, err)
	assert.True(t, quiz.Passed)
	assert.InDelta(t, 100.0, quiz.ScorePct, 0.001)
	assert.Equal(t, "course-1", quiz.CourseID.String())

	count, avg := AverageQuizScore([]*QuizAttempt{quiz, {ScorePct: 50}})
	assert.Equal(t, 2, count)
	assert.InDelta(t, 75.0, avg, 0.001)
}

func TestMockTest_Validate(t *testing.T) {
	_, err := NewMockTest("", "x", []Question{{ID: "q", Kind: QuestionMCQ, Points: 1, CorrectAnswers: []string{"a"}}}, 50)
	assert.ErrorIs(t, err, ErrInvalidTestID)

	_, err = NewMockTest("t", "x", nil, 50)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = NewMockTest("t", "x", []Question{{ID: "q", Kind: QuestionCoding, Points: 1}}, 50)
	assert.ErrorIs(t, err, ErrNoTestCases)

	_, err = NewMockTest("t", "x", []Question{{ID: "q", Kind: QuestionMCQ, Points: 0, CorrectAnswers: []string{"a"}}}, 50)
	assert.ErrorIs(t, err, ErrNonPositivePoints)

	_, err = NewMockTest("t", "x", []Question{{ID: "q", Kind: QuestionMCQ, Points: 1, CorrectAnswers: []string{"a"}}}, 101)
	assert.ErrorIs(t, err, ErrBadPassingScore)
}
