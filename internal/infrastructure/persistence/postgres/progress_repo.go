package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
// The whole aggregate travels as one JSONB document; writes are
// compare-and-swap on the version column.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Load loads the progress document for a (user, course) pair.
func (r *ProgressRepository) Load(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*progress.CourseProgress, error) {
	query := `
		SELECT doc, version
		FROM course_progress
		WHERE user_id = $1 AND course_id = $2
	`

	var docJSON []byte
	var version int64
	err := r.conn.QueryRow(ctx, query, userID.String(), courseID.String()).Scan(&docJSON, &version)
	if IsNoRows(err) {
		return nil, shared.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var doc progress.CourseProgress
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode progress document: %w", err)
	}
	doc.Version = version

	return &doc, nil
}

// Save persists the document, checking the expected version.
// expectedVersion 0 means the document is new; anything else must
// match the stored version or shared.ErrVersionConflict is returned.
func (r *ProgressRepository) Save(ctx context.Context, doc *progress.CourseProgress, expectedVersion int64) error {
	newVersion := expectedVersion + 1
	doc.Version = newVersion

	docJSON, err := json.Marshal(doc)
	if err != nil {
		doc.Version = expectedVersion
		return fmt.Errorf("failed to encode progress document: %w", err)
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO course_progress (user_id, course_id, doc, version, completed, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, course_id) DO NOTHING
		`
		tag, err := r.conn.Exec(ctx, query,
			doc.UserID.String(),
			doc.CourseID.String(),
			docJSON,
			newVersion,
			doc.Completed,
			time.Now().UTC(),
		)
		if err != nil {
			doc.Version = expectedVersion
			return fmt.Errorf("failed to insert progress: %w", err)
		}
		if tag.RowsAffected() == 0 {
			doc.Version = expectedVersion
			return shared.ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE course_progress
		SET doc = $1, version = $2, completed = $3, updated_at = $4
		WHERE user_id = $5 AND course_id = $6 AND version = $7
	`
	tag, err := r.conn.Exec(ctx, query,
		docJSON,
		newVersion,
		doc.Completed,
		time.Now().UTC(),
		doc.UserID.String(),
		doc.CourseID.String(),
		expectedVersion,
	)
	if err != nil {
		doc.Version = expectedVersion
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		doc.Version = expectedVersion
		return shared.ErrVersionConflict
	}

	return nil
}

// ListByUser returns the user's progress documents across all courses.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*progress.CourseProgress, error) {
	query := `
		SELECT doc, version
		FROM course_progress
		WHERE user_id = $1
		ORDER BY course_id
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var docs []*progress.CourseProgress
	for rows.Next() {
		var docJSON []byte
		var version int64
		if err := rows.Scan(&docJSON, &version); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}

		var doc progress.CourseProgress
		if err := json.Unmarshal(docJSON, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode progress document: %w", err)
		}
		doc.Version = version
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements progress.StreakRepository for PostgreSQL.
// current_streak and last_active_date are denormalized into columns so
// the reminder job can scan at-risk streaks without opening documents.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// Load loads the user's streak state.
func (r *StreakRepository) Load(ctx context.Context, userID shared.UserID) (*progress.Streak, error) {
	query := `
		SELECT doc, version
		FROM streaks
		WHERE user_id = $1
	`

	var docJSON []byte
	var version int64
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&docJSON, &version)
	if IsNoRows(err) {
		return nil, shared.ErrStreakNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	var streak progress.Streak
	if err := json.Unmarshal(docJSON, &streak); err != nil {
		return nil, fmt.Errorf("failed to decode streak document: %w", err)
	}
	streak.Version = version

	return &streak, nil
}

// Save persists the streak state with a version check, under the same
// rules as ProgressRepository.Save.
func (r *StreakRepository) Save(ctx context.Context, streak *progress.Streak, expectedVersion int64) error {
	newVersion := expectedVersion + 1
	streak.Version = newVersion

	docJSON, err := json.Marshal(streak)
	if err != nil {
		streak.Version = expectedVersion
		return fmt.Errorf("failed to encode streak document: %w", err)
	}

	var lastActive *time.Time
	if !streak.LastActiveDate.IsZero() {
		lastActive = &streak.LastActiveDate
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO streaks (user_id, doc, version, current_streak, last_active_date, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO NOTHING
		`
		tag, err := r.conn.Exec(ctx, query,
			streak.UserID.String(),
			docJSON,
			newVersion,
			streak.CurrentStreak,
			lastActive,
			time.Now().UTC(),
		)
		if err != nil {
			streak.Version = expectedVersion
			return fmt.Errorf("failed to insert streak: %w", err)
		}
		if tag.RowsAffected() == 0 {
			streak.Version = expectedVersion
			return shared.ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE streaks
		SET doc = $1, version = $2, current_streak = $3, last_active_date = $4, updated_at = $5
		WHERE user_id = $6 AND version = $7
	`
	tag, err := r.conn.Exec(ctx, query,
		docJSON,
		newVersion,
		streak.CurrentStreak,
		lastActive,
		time.Now().UTC(),
		streak.UserID.String(),
		expectedVersion,
	)
	if err != nil {
		streak.Version = expectedVersion
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		streak.Version = expectedVersion
		return shared.ErrVersionConflict
	}

	return nil
}

// ListAtRisk returns streaks whose last active day is behind today in
// UTC. The scan is deliberately coarse: per-user timezones are applied
// by the reminder job via Streak.IsAtRisk, the query only narrows the
// candidate set.
func (r *StreakRepository) ListAtRisk(ctx context.Context, limit int) ([]*progress.Streak, error) {
	query := `
		SELECT doc, version
		FROM streaks
		WHERE current_streak > 0 AND last_active_date < CURRENT_DATE
		ORDER BY current_streak DESC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list at-risk streaks: %w", err)
	}
	defer rows.Close()

	var streaks []*progress.Streak
	for rows.Next() {
		var docJSON []byte
		var version int64
		if err := rows.Scan(&docJSON, &version); err != nil {
			return nil, fmt.Errorf("failed to scan streak row: %w", err)
		}

		var streak progress.Streak
		if err := json.Unmarshal(docJSON, &streak); err != nil {
			return nil, fmt.Errorf("failed to decode streak document: %w", err)
		}
		streak.Version = version
		streaks = append(streaks, &streak)
	}

	return streaks, rows.Err()
}
