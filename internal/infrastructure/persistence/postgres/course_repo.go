package postgres

import (
	"context"
	"fmt"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements course.EnrollmentRepository for
// PostgreSQL. Enrollments are small and fully columnar; there is no
// document blob here.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Save persists an enrollment (create or update).
func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *course.Enrollment) error {
	query := `
		INSERT INTO enrollments (user_id, course_id, status, enrolled_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			status = EXCLUDED.status,
			enrolled_at = EXCLUDED.enrolled_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.conn.Exec(ctx, query,
		enrollment.UserID.String(),
		enrollment.CourseID.String(),
		string(enrollment.Status),
		enrollment.EnrolledAt,
		enrollment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

// Get returns the enrollment for a (user, course) pair.
func (r *EnrollmentRepository) Get(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*course.Enrollment, error) {
	query := `
		SELECT user_id, course_id, status, enrolled_at, completed_at
		FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`

	return r.scanEnrollment(r.conn.QueryRow(ctx, query, userID.String(), courseID.String()))
}

// ListByUser returns all enrollments for a learner.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*course.Enrollment, error) {
	query := `
		SELECT user_id, course_id, status, enrolled_at, completed_at
		FROM enrollments
		WHERE user_id = $1
		ORDER BY enrolled_at ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*course.Enrollment
	for rows.Next() {
		enrollment, err := r.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}

	return enrollments, rows.Err()
}

// CountCompletedByUser returns how many courses the learner completed.
func (r *EnrollmentRepository) CountCompletedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND status = 'completed'",
		userID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed courses: %w", err)
	}
	return count, nil
}

// scanEnrollment scans a single enrollment from a row.
func (r *EnrollmentRepository) scanEnrollment(row pgx.Row) (*course.Enrollment, error) {
	var enrollment course.Enrollment
	var uid, cid, status string

	err := row.Scan(
		&uid,
		&cid,
		&status,
		&enrollment.EnrolledAt,
		&enrollment.CompletedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	enrollment.UserID = shared.UserID(uid)
	enrollment.CourseID = shared.CourseID(cid)
	enrollment.Status = course.EnrollmentStatus(status)

	return &enrollment, nil
}
