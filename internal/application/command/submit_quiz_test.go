package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// syntaxQuiz definitions mirror the q1 topic of the goBasics course.
func syntaxQuiz(t *testing.T) *assessment.MockTest {
	t.Helper()
	quiz, err := assessment.NewMockTest("quiz-syntax", "Syntax quiz", []assessment.Question{
		{
			ID: "qq1", Kind: assessment.QuestionMCQ, Points: 1,
			Options: []string{"a", "b"}, CorrectAnswers: []string{"a"},
		},
		{
			ID: "qq2", Kind: assessment.QuestionMCQ, Points: 1,
			Options: []string{"a", "b"}, CorrectAnswers: []string{"b"},
		},
	}, 50)
	require.NoError(t, err)
	return quiz
}

func newQuizFixture(t *testing.T) (*SubmitQuizHandler, *applyFixture, *fakeQuizAttemptRepo, *fakePublisher) {
	t.Helper()
	apply := newApplyFixture(t, goBasics(t))
	apply.enroll(t, "user-1", "go-basics")
	quizzes := &fakeQuizAttemptRepo{}
	pub := &fakePublisher{}
	handler := NewSubmitQuizHandler(
		newFakeTestRepo(syntaxQuiz(t)), quizzes, apply.handler, pub, testLogger(),
	)
	return handler, apply, quizzes, pub
}

func quizCmd(answers map[string][]string) SubmitQuizCommand {
	cmd := SubmitQuizCommand{
		UserID:           "user-1",
		MockTestID:       "quiz-syntax",
		CourseID:         "go-basics",
		ConceptID:        "c1",
		QuizTopicID:      "q1",
		TimeSpentSeconds: 240,
		SubmittedAt:      time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	for id, selected := range answers {
		cmd.Responses = append(cmd.Responses, AttemptResponse{QuestionID: id, SelectedAnswers: selected})
	}
	return cmd
}

func TestSubmitQuiz_PassCompletesTopic(t *testing.T) {
	handler, apply, quizzes, pub := newQuizFixture(t)

	result, err := handler.Handle(context.Background(), quizCmd(map[string][]string{
		"qq1": {"a"}, "qq2": {"b"},
	}))
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.ScorePct, 0.001)
	assert.True(t, result.Passed)
	require.NotNil(t, result.Progress)
	assert.True(t, result.Progress.Snapshot.Changes.TopicCompleted)
	assert.Contains(t, pub.typesSeen(), shared.EventQuizPassed)

	saved, err := quizzes.ListByConcept(context.Background(), "user-1", "c1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Passed)
	assert.Equal(t, 240, saved[0].TimeSpentSeconds)

	doc, err := apply.progress.Load(context.Background(), "user-1", "go-basics")
	require.NoError(t, err)
	cp := doc.FindConcept("c1")
	require.NotNil(t, cp)
	assert.Equal(t, 1, cp.CompletedTopicCount())
}

func TestSubmitQuiz_FailRecordsTimeOnly(t *testing.T) {
	handler, apply, quizzes, pub := newQuizFixture(t)

	result, err := handler.Handle(context.Background(), quizCmd(map[string][]string{
		"qq1": {"b"}, "qq2": {"a"},
	}))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.ScorePct, 0.001)
	assert.False(t, result.Passed)
	require.NotNil(t, result.Progress)
	assert.False(t, result.Progress.Snapshot.Changes.TopicCompleted)
	assert.NotContains(t, pub.typesSeen(), shared.EventQuizPassed)

	saved, err := quizzes.ListByConcept(context.Background(), "user-1", "c1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.False(t, saved[0].Passed)

	doc, err := apply.progress.Load(context.Background(), "user-1", "go-basics")
	require.NoError(t, err)
	cp := doc.FindConcept("c1")
	require.NotNil(t, cp)
	assert.Equal(t, 0, cp.CompletedTopicCount())
	assert.Equal(t, 240, cp.TotalTimeSeconds())
}

func TestSubmitQuiz_ValidatesTreePosition(t *testing.T) {
	handler, _, _, _ := newQuizFixture(t)
	cmd := quizCmd(map[string][]string{"qq1": {"a"}, "qq2": {"b"}})
	cmd.ConceptID = ""

	_, err := handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
