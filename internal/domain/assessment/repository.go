package assessment

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// TestRepository provides read access to mock-test definitions.
type TestRepository interface {
	// GetTest returns a test definition.
	// Returns shared.ErrMockTestNotFound if unknown.
	GetTest(ctx context.Context, id string) (*MockTest, error)
}

// AttemptRepository persists graded attempts. Attempts are immutable
// once written; there is no update path.
type AttemptRepository interface {
	// SaveAttempt persists a graded attempt.
	SaveAttempt(ctx context.Context, attempt *Attempt) error

	// NextAttemptNumber returns the next attempt number for the pair,
	// starting at 1 and strictly increasing.
	NextAttemptNumber(ctx context.Context, userID shared.UserID, mockTestID string) (int, error)

	// ListAttempts returns a user's graded attempts on a test, in
	// attempt-number order.
	ListAttempts(ctx context.Context, userID shared.UserID, mockTestID string) ([]*Attempt, error)

	// ListAllGraded returns every graded attempt on a test, for the
	// periodic stats rebuild job.
	ListAllGraded(ctx context.Context, mockTestID string) ([]*Attempt, error)

	// CountPassedByUser counts distinct passed tests for a user,
	// feeding the mock_tests_passed achievement counter.
	CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error)
}

// QuizAttemptRepository persists course quiz attempts.
type QuizAttemptRepository interface {
	// SaveQuizAttempt persists a graded quiz attempt.
	SaveQuizAttempt(ctx context.Context, attempt *QuizAttempt) error

	// ListByConcept returns a user's quiz attempts within a concept,
	// for the mastery scorer's quiz component.
	ListByConcept(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) ([]*QuizAttempt, error)

	// CountPassedByUser counts passed quizzes for a user, feeding the
	// quizzes_passed achievement counter.
	CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error)
}

// ScoreDistribution tracks the score distribution per test for
// percentile ranking. Backed by a Redis sorted set so the
// strictly-lower count is a single ZCOUNT.
type ScoreDistribution interface {
	// RecordScore adds a submitted score to the test's distribution.
	RecordScore(ctx context.Context, mockTestID string, attemptID string, score float64) error

	// CountLower returns how many recorded scores are strictly lower.
	CountLower(ctx context.Context, mockTestID string, score float64) (int, error)

	// CountTotal returns the total number of recorded scores.
	CountTotal(ctx context.Context, mockTestID string) (int, error)
}

// StatsRepository stores rebuilt per-test aggregates.
type StatsRepository interface {
	// SaveStats persists rebuilt stats for a test.
	SaveStats(ctx context.Context, stats TestStats) error

	// GetStats returns the latest rebuilt stats for a test.
	GetStats(ctx context.Context, mockTestID string) (*TestStats, error)
}
