package assessment

import (
	"sort"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// TestCaseResult is the recorded outcome of one coding test case,
// as reported by the execution sandbox.
type TestCaseResult struct {
	TestCaseID string `json:"test_case_id"`
	Passed     bool   `json:"passed"`
}

// Response is one answered question within an attempt.
type Response struct {
	QuestionID string `json:"question_id"`

	// SelectedAnswers holds the learner's choice(s) for objective
	// questions.
	SelectedAnswers []string `json:"selected_answers,omitempty"`

	// TestCaseResults holds sandbox outcomes for coding questions.
	TestCaseResults []TestCaseResult `json:"test_case_results,omitempty"`

	// Grading output, filled by Grade.
	Correct      bool `json:"correct"`
	PointsEarned int  `json:"points_earned"`
	MaxPoints    int  `json:"max_points"`
}

// Attempt is a single mock-test attempt. Immutable once graded:
// grading the same attempt twice is an error.
type Attempt struct {
	ID            string        `json:"id"`
	UserID        shared.UserID `json:"user_id"`
	MockTestID    string        `json:"mock_test_id"`
	AttemptNumber int           `json:"attempt_number"`
	Responses     []Response    `json:"responses"`
	TotalScore    float64       `json:"total_score"`
	Passed        bool          `json:"passed"`
	Percentile    float64       `json:"percentile"`
	StartedAt     time.Time     `json:"started_at"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
}

// IsGraded reports whether the attempt has been submitted and graded.
func (a *Attempt) IsGraded() bool {
	return a.SubmittedAt != nil
}

// Grade scores the attempt against the test definition:
//   - objective questions are exact-set matches against CorrectAnswers;
//   - coding questions require every test case, hidden or visible, to pass;
//   - points are binary per question, no partial credit;
//   - totalScore = 100 × earned / max.
//
// Responses referencing unknown questions fail the whole grading:
// a malformed submission must not produce a partially scored attempt.
func (a *Attempt) Grade(test *MockTest, at time.Time) error {
	if a.IsGraded() {
		return ErrAlreadyGraded
	}
	if a.MockTestID != test.ID {
		return ErrResponseMismatch
	}

	maxPoints := test.MaxPoints()
	earned := 0

	for i := range a.Responses {
		resp := &a.Responses[i]
		question, ok := test.FindQuestion(resp.QuestionID)
		if !ok {
			return ErrResponseMismatch
		}
		resp.MaxPoints = question.Points
		resp.Correct = gradeResponse(question, resp)
		if resp.Correct {
			resp.PointsEarned = question.Points
			earned += question.Points
		} else {
			resp.PointsEarned = 0
		}
	}

	if maxPoints > 0 {
		a.TotalScore = 100 * float64(earned) / float64(maxPoints)
	}
	a.Passed = a.TotalScore >= test.PassingScore
	a.SubmittedAt = &at
	return nil
}

// gradeResponse decides correctness for one question variant.
func gradeResponse(q *Question, resp *Response) bool {
	switch q.Kind {
	case QuestionMCQ, QuestionMultipleSelect:
		return exactSetMatch(resp.SelectedAnswers, q.CorrectAnswers)
	case QuestionCoding:
		return allTestCasesPass(q.TestCases, resp.TestCaseResults)
	}
	return false
}

// exactSetMatch compares two answer sets ignoring order and duplicates.
func exactSetMatch(selected, correct []string) bool {
	if len(selected) == 0 {
		return false
	}
	sel := dedupeSorted(selected)
	cor := dedupeSorted(correct)
	if len(sel) != len(cor) {
		return false
	}
	for i := range sel {
		if sel[i] != cor[i] {
			return false
		}
	}
	return true
}

func dedupeSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// allTestCasesPass is the conjunction over every defined test case.
// A case with no reported result counts as failed.
func allTestCasesPass(cases []TestCase, results []TestCaseResult) bool {
	byID := make(map[string]bool, len(results))
	for _, r := range results {
		byID[r.TestCaseID] = r.Passed
	}
	for _, tc := range cases {
		if !byID[tc.ID] {
			return false
		}
	}
	return true
}

// Percentile ranks a score against prior scores on the same test:
// 100 × (strictly lower) / (total prior). With no prior attempts the
// first submitter ranks at 100. The value is a submission-time
// snapshot; earlier attempts are never retroactively re-ranked.
func Percentile(score float64, priorScores []float64) float64 {
	if len(priorScores) == 0 {
		return 100
	}
	lower := 0
	for _, prior := range priorScores {
		if prior < score {
			lower++
		}
	}
	return 100 * float64(lower) / float64(len(priorScores))
}

// PercentileFromCounts is Percentile over pre-aggregated counts, for
// callers that keep the distribution in a sorted-set store instead of
// loading every prior score.
func PercentileFromCounts(lower, total int) float64 {
	if total <= 0 {
		return 100
	}
	return 100 * float64(lower) / float64(total)
}
