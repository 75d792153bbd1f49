package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TestRepository implements assessment.TestRepository for PostgreSQL.
// Definitions are validated on every load; a corrupt document never
// reaches the grader.
type TestRepository struct {
	conn *Connection
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(conn *Connection) *TestRepository {
	return &TestRepository{conn: conn}
}

// GetTest returns a test definition.
func (r *TestRepository) GetTest(ctx context.Context, id string) (*assessment.MockTest, error) {
	query := `SELECT doc FROM mock_tests WHERE id = $1`

	var docJSON []byte
	err := r.conn.QueryRow(ctx, query, id).Scan(&docJSON)
	if IsNoRows(err) {
		return nil, shared.ErrMockTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mock test: %w", err)
	}

	var test assessment.MockTest
	if err := json.Unmarshal(docJSON, &test); err != nil {
		return nil, fmt.Errorf("failed to decode mock test: %w", err)
	}
	if err := test.Validate(); err != nil {
		return nil, fmt.Errorf("stored mock test %s is invalid: %w", id, err)
	}

	return &test, nil
}

// SaveTest persists a test definition, replacing any existing one.
func (r *TestRepository) SaveTest(ctx context.Context, test *assessment.MockTest) error {
	if err := test.Validate(); err != nil {
		return err
	}

	docJSON, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("failed to encode mock test: %w", err)
	}

	query := `
		INSERT INTO mock_tests (id, doc, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`
	_, err = r.conn.Exec(ctx, query, test.ID, docJSON, test.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mock test: %w", err)
	}

	return nil
}

// ListTestIDs returns the IDs of all stored test definitions.
// The stats rebuild job uses it to enumerate tests.
func (r *TestRepository) ListTestIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM mock_tests ORDER BY id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mock test ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan mock test id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttemptRepository implements assessment.AttemptRepository for
// PostgreSQL. Attempts are insert-only documents; the unique index on
// (user, test, attempt_number) enforces strictly increasing numbers
// even under concurrent submissions.
type AttemptRepository struct {
	conn *Connection
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(conn *Connection) *AttemptRepository {
	return &AttemptRepository{conn: conn}
}

// SaveAttempt persists a graded attempt.
func (r *AttemptRepository) SaveAttempt(ctx context.Context, attempt *assessment.Attempt) error {
	if !attempt.IsGraded() {
		return shared.NewDomainError("assessment", "SaveAttempt", shared.ErrInvalidState,
			"attempt must be graded before saving")
	}

	docJSON, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}

	query := `
		INSERT INTO attempts (id, user_id, mock_test_id, attempt_number, total_score, passed, doc, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.conn.Exec(ctx, query,
		attempt.ID,
		attempt.UserID.String(),
		attempt.MockTestID,
		attempt.AttemptNumber,
		attempt.TotalScore,
		attempt.Passed,
		docJSON,
		*attempt.SubmittedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return assessment.ErrAttemptNumberOrder
		}
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	return nil
}

// NextAttemptNumber returns the next attempt number for the pair.
func (r *AttemptRepository) NextAttemptNumber(ctx context.Context, userID shared.UserID, mockTestID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(attempt_number), 0) + 1
		FROM attempts
		WHERE user_id = $1 AND mock_test_id = $2
	`

	var next int
	err := r.conn.QueryRow(ctx, query, userID.String(), mockTestID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next attempt number: %w", err)
	}

	return next, nil
}

// ListAttempts returns a user's attempts on a test in attempt order.
func (r *AttemptRepository) ListAttempts(ctx context.Context, userID shared.UserID, mockTestID string) ([]*assessment.Attempt, error) {
	query := `
		SELECT doc
		FROM attempts
		WHERE user_id = $1 AND mock_test_id = $2
		ORDER BY attempt_number ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), mockTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// ListAllGraded returns every graded attempt on a test.
func (r *AttemptRepository) ListAllGraded(ctx context.Context, mockTestID string) ([]*assessment.Attempt, error) {
	query := `
		SELECT doc
		FROM attempts
		WHERE mock_test_id = $1
		ORDER BY submitted_at ASC
	`

	rows, err := r.conn.Query(ctx, query, mockTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graded attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// CountPassedByUser counts distinct passed tests for a user.
func (r *AttemptRepository) CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	query := `
		SELECT COUNT(DISTINCT mock_test_id)
		FROM attempts
		WHERE user_id = $1 AND passed
	`

	var count int
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count passed tests: %w", err)
	}

	return count, nil
}

// scanAttempts decodes attempt documents from rows.
func scanAttempts(rows pgx.Rows) ([]*assessment.Attempt, error) {
	var attempts []*assessment.Attempt
	for rows.Next() {
		var docJSON []byte
		if err := rows.Scan(&docJSON); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}

		var attempt assessment.Attempt
		if err := json.Unmarshal(docJSON, &attempt); err != nil {
			return nil, fmt.Errorf("failed to decode attempt: %w", err)
		}
		attempts = append(attempts, &attempt)
	}

	return attempts, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ ATTEMPT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuizAttemptRepository implements assessment.QuizAttemptRepository
// for PostgreSQL.
type QuizAttemptRepository struct {
	conn *Connection
}

// NewQuizAttemptRepository creates a new QuizAttemptRepository.
func NewQuizAttemptRepository(conn *Connection) *QuizAttemptRepository {
	return &QuizAttemptRepository{conn: conn}
}

// SaveQuizAttempt persists a graded quiz attempt.
func (r *QuizAttemptRepository) SaveQuizAttempt(ctx context.Context, attempt *assessment.QuizAttempt) error {
	docJSON, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode quiz attempt: %w", err)
	}

	query := `
		INSERT INTO quiz_attempts (id, user_id, course_id, concept_id, passed, doc, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.conn.Exec(ctx, query,
		attempt.ID,
		attempt.UserID.String(),
		attempt.CourseID.String(),
		attempt.ConceptID.String(),
		attempt.Passed,
		docJSON,
		attempt.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz attempt: %w", err)
	}

	return nil
}

// ListByConcept returns a user's quiz attempts within a concept.
func (r *QuizAttemptRepository) ListByConcept(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) ([]*assessment.QuizAttempt, error) {
	query := `
		SELECT doc
		FROM quiz_attempts
		WHERE user_id = $1 AND concept_id = $2
		ORDER BY submitted_at ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), conceptID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*assessment.QuizAttempt
	for rows.Next() {
		var docJSON []byte
		if err := rows.Scan(&docJSON); err != nil {
			return nil, fmt.Errorf("failed to scan quiz attempt row: %w", err)
		}

		var attempt assessment.QuizAttempt
		if err := json.Unmarshal(docJSON, &attempt); err != nil {
			return nil, fmt.Errorf("failed to decode quiz attempt: %w", err)
		}
		attempts = append(attempts, &attempt)
	}

	return attempts, rows.Err()
}

// CountPassedByUser counts passed quizzes for a user.
func (r *QuizAttemptRepository) CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM quiz_attempts
		WHERE user_id = $1 AND passed
	`

	var count int
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count passed quizzes: %w", err)
	}

	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TEST STATS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements assessment.StatsRepository for PostgreSQL.
// Stats rows are replaced wholesale by the periodic rebuild job.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

// SaveStats persists rebuilt stats for a test.
func (r *StatsRepository) SaveStats(ctx context.Context, stats assessment.TestStats) error {
	query := `
		INSERT INTO test_stats (mock_test_id, total_attempts, pass_rate, average_score, highest_score, rebuilt_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mock_test_id) DO UPDATE SET
			total_attempts = EXCLUDED.total_attempts,
			pass_rate = EXCLUDED.pass_rate,
			average_score = EXCLUDED.average_score,
			highest_score = EXCLUDED.highest_score,
			rebuilt_at = EXCLUDED.rebuilt_at
	`

	_, err := r.conn.Exec(ctx, query,
		stats.MockTestID,
		stats.TotalAttempts,
		stats.PassRate,
		stats.AverageScore,
		stats.HighestScore,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save test stats: %w", err)
	}

	return nil
}

// GetStats returns the latest rebuilt stats for a test.
func (r *StatsRepository) GetStats(ctx context.Context, mockTestID string) (*assessment.TestStats, error) {
	query := `
		SELECT mock_test_id, total_attempts, pass_rate, average_score, highest_score
		FROM test_stats
		WHERE mock_test_id = $1
	`

	var stats assessment.TestStats
	err := r.conn.QueryRow(ctx, query, mockTestID).Scan(
		&stats.MockTestID,
		&stats.TotalAttempts,
		&stats.PassRate,
		&stats.AverageScore,
		&stats.HighestScore,
	)
	if IsNoRows(err) {
		return nil, shared.ErrMockTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test stats: %w", err)
	}

	return &stats, nil
}
