package assessment

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// QuizAttempt is a graded attempt at a course quiz (a quiz-kind topic
// inside a concept). Unlike mock tests, quiz attempts feed back into
// the progress engine: a passing attempt completes the quiz topic, and
// the attempt history feeds the mastery scorer's quiz component.
type QuizAttempt struct {
	ID          string           `json:"id"`
	UserID      shared.UserID    `json:"user_id"`
	CourseID    shared.CourseID  `json:"course_id"`
	ConceptID   shared.ConceptID `json:"concept_id"`
	QuizTopicID shared.TopicID   `json:"quiz_topic_id"`

	// ScorePct is the graded score, 0-100.
	ScorePct float64 `json:"score_pct"`

	// Passed is true when ScorePct reached the quiz passing score.
	Passed bool `json:"passed"`

	TimeSpentSeconds int       `json:"time_spent_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// GradeQuiz grades a quiz submission using the same rules as mock
// tests and maps it onto a QuizAttempt bound to its course location.
func GradeQuiz(
	test *MockTest,
	attempt *Attempt,
	courseID shared.CourseID,
	conceptID shared.ConceptID,
	quizTopicID shared.TopicID,
	at time.Time,
) (*QuizAttempt, error) {
	if err := attempt.Grade(test, at); err != nil {
		return nil, err
	}
	return &QuizAttempt{
		ID:          attempt.ID,
		UserID:      attempt.UserID,
		CourseID:    courseID,
		ConceptID:   conceptID,
		QuizTopicID: quizTopicID,
		ScorePct:    attempt.TotalScore,
		Passed:      attempt.Passed,
		SubmittedAt: at,
	}, nil
}

// AverageQuizScore folds attempts into the mastery scorer's quiz
// component input.
func AverageQuizScore(attempts []*QuizAttempt) (count int, average float64) {
	if len(attempts) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, a := range attempts {
		sum += a.ScorePct
	}
	return len(attempts), sum / float64(len(attempts))
}
