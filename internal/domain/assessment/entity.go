// Package assessment contains mock-test and quiz definitions, attempt
// grading, percentile ranking, and per-attempt analysis.
package assessment

import (
	"errors"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// Domain errors for assessment package.
var (
	ErrInvalidTestID      = errors.New("assessment: invalid test ID")
	ErrNoQuestions        = errors.New("assessment: test has no questions")
	ErrDuplicateQuestion  = errors.New("assessment: duplicate question ID")
	ErrUnknownQuestion    = errors.New("assessment: unknown question kind")
	ErrNoCorrectAnswers   = errors.New("assessment: objective question has no correct answers")
	ErrNoTestCases        = errors.New("assessment: coding question has no test cases")
	ErrNonPositivePoints  = errors.New("assessment: question points must be positive")
	ErrBadPassingScore    = errors.New("assessment: passing score must be in [0, 100]")
	ErrResponseMismatch   = errors.New("assessment: response references unknown question")
	ErrAlreadyGraded      = errors.New("assessment: attempt already graded")
	ErrAttemptNumberOrder = errors.New("assessment: attempt number must increase per user and test")
)

// QuestionKind discriminates the question variants. Mixed-shape
// documents from the store are decoded into exactly one variant.
type QuestionKind string

const (
	QuestionMCQ            QuestionKind = "mcq"
	QuestionMultipleSelect QuestionKind = "multiple_select"
	QuestionCoding         QuestionKind = "coding"
)

// IsValid reports whether the kind is known.
func (k QuestionKind) IsValid() bool {
	switch k {
	case QuestionMCQ, QuestionMultipleSelect, QuestionCoding:
		return true
	}
	return false
}

// Difficulty of a question, used by attempt analysis.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TestCase is a single coding-question check. Hidden cases count
// toward correctness exactly like visible ones.
type TestCase struct {
	ID     string `json:"id"`
	Hidden bool   `json:"hidden"`
}

// Question is one scored unit of a test. Exactly one of the
// kind-specific field groups is populated, selected by Kind.
type Question struct {
	ID         string       `json:"id"`
	Kind       QuestionKind `json:"kind"`
	Prompt     string       `json:"prompt"`
	Points     int          `json:"points"`
	Topic      string       `json:"topic,omitempty"`
	Difficulty Difficulty   `json:"difficulty,omitempty"`

	// Objective variants (mcq, multiple_select).
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`

	// Coding variant.
	TestCases []TestCase `json:"test_cases,omitempty"`
}

// Validate checks the per-variant invariants of a question.
func (q *Question) Validate() error {
	if q.ID == "" {
		return ErrResponseMismatch
	}
	if !q.Kind.IsValid() {
		return ErrUnknownQuestion
	}
	if q.Points <= 0 {
		return ErrNonPositivePoints
	}
	switch q.Kind {
	case QuestionMCQ, QuestionMultipleSelect:
		if len(q.CorrectAnswers) == 0 {
			return ErrNoCorrectAnswers
		}
	case QuestionCoding:
		if len(q.TestCases) == 0 {
			return ErrNoTestCases
		}
	}
	return nil
}

// MockTest is an immutable assessment definition.
type MockTest struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	CourseID        shared.CourseID `json:"course_id,omitempty"`
	Questions       []Question      `json:"questions"`
	PassingScore    float64         `json:"passing_score"`
	MaxAttempts     int             `json:"max_attempts"` // 0 means unlimited
	DurationMinutes int             `json:"duration_minutes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewMockTest builds and validates a test definition.
func NewMockTest(id, title string, questions []Question, passingScore float64) (*MockTest, error) {
	mt := &MockTest{
		ID:           id,
		Title:        title,
		Questions:    questions,
		PassingScore: passingScore,
		CreatedAt:    time.Now(),
	}
	if err := mt.Validate(); err != nil {
		return nil, err
	}
	return mt, nil
}

// Validate checks the test definition invariants.
func (mt *MockTest) Validate() error {
	if mt.ID == "" {
		return ErrInvalidTestID
	}
	if len(mt.Questions) == 0 {
		return ErrNoQuestions
	}
	if mt.PassingScore < 0 || mt.PassingScore > 100 {
		return ErrBadPassingScore
	}
	seen := make(map[string]struct{}, len(mt.Questions))
	for i := range mt.Questions {
		q := &mt.Questions[i]
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return ErrDuplicateQuestion
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// FindQuestion returns the question with the given ID.
func (mt *MockTest) FindQuestion(id string) (*Question, bool) {
	for i := range mt.Questions {
		if mt.Questions[i].ID == id {
			return &mt.Questions[i], true
		}
	}
	return nil, false
}

// MaxPoints returns the sum of points across all questions.
func (mt *MockTest) MaxPoints() int {
	total := 0
	for _, q := range mt.Questions {
		total += q.Points
	}
	return total
}
