package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsRepository implements analytics.Repository for PostgreSQL.
// Daily rows are plain counters; rollups replace wholesale so the
// background rebuild stays idempotent.
type AnalyticsRepository struct {
	conn *Connection
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(conn *Connection) *AnalyticsRepository {
	return &AnalyticsRepository{conn: conn}
}

// LoadDaily loads the daily record for one user and date key.
func (r *AnalyticsRepository) LoadDaily(ctx context.Context, userID shared.UserID, dateKey string) (*analytics.DailyActivity, error) {
	query := `
		SELECT user_id, date_key, topics_completed, problems_solved, quizzes_passed,
			   time_spent_seconds, xp_earned, event_count
		FROM daily_activity
		WHERE user_id = $1 AND date_key = $2
	`

	daily, err := r.scanDaily(r.conn.QueryRow(ctx, query, userID.String(), dateKey))
	if err != nil {
		return nil, err
	}
	return daily, nil
}

// SaveDaily persists the daily record, replacing all counters.
func (r *AnalyticsRepository) SaveDaily(ctx context.Context, daily *analytics.DailyActivity) error {
	query := `
		INSERT INTO daily_activity (
			user_id, date_key, topics_completed, problems_solved, quizzes_passed,
			time_spent_seconds, xp_earned, event_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, date_key) DO UPDATE SET
			topics_completed = EXCLUDED.topics_completed,
			problems_solved = EXCLUDED.problems_solved,
			quizzes_passed = EXCLUDED.quizzes_passed,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			xp_earned = EXCLUDED.xp_earned,
			event_count = EXCLUDED.event_count
	`

	_, err := r.conn.Exec(ctx, query,
		daily.UserID.String(),
		daily.DateKey,
		daily.TopicsCompleted,
		daily.ProblemsSolved,
		daily.QuizzesPassed,
		daily.TimeSpentSeconds,
		daily.XPEarned,
		daily.EventCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily activity: %w", err)
	}

	return nil
}

// ListDailyRange returns the user's daily records within [fromKey, toKey].
// Date keys sort lexicographically, so BETWEEN on the text keys is a
// correct range scan.
func (r *AnalyticsRepository) ListDailyRange(ctx context.Context, userID shared.UserID, fromKey, toKey string) ([]*analytics.DailyActivity, error) {
	query := `
		SELECT user_id, date_key, topics_completed, problems_solved, quizzes_passed,
			   time_spent_seconds, xp_earned, event_count
		FROM daily_activity
		WHERE user_id = $1 AND date_key BETWEEN $2 AND $3
		ORDER BY date_key ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily activity: %w", err)
	}
	defer rows.Close()

	var records []*analytics.DailyActivity
	for rows.Next() {
		var daily analytics.DailyActivity
		var uid string
		err := rows.Scan(
			&uid,
			&daily.DateKey,
			&daily.TopicsCompleted,
			&daily.ProblemsSolved,
			&daily.QuizzesPassed,
			&daily.TimeSpentSeconds,
			&daily.XPEarned,
			&daily.EventCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily activity row: %w", err)
		}
		daily.UserID = shared.UserID(uid)
		records = append(records, &daily)
	}

	return records, rows.Err()
}

// SaveRollup persists a period rollup, replacing the existing one.
func (r *AnalyticsRepository) SaveRollup(ctx context.Context, rollup *analytics.PeriodRollup) error {
	query := `
		INSERT INTO period_rollups (
			user_id, period, start_key, active_days, topics_completed, problems_solved,
			quizzes_passed, time_spent_seconds, xp_earned, built_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, period, start_key) DO UPDATE SET
			active_days = EXCLUDED.active_days,
			topics_completed = EXCLUDED.topics_completed,
			problems_solved = EXCLUDED.problems_solved,
			quizzes_passed = EXCLUDED.quizzes_passed,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			xp_earned = EXCLUDED.xp_earned,
			built_at = EXCLUDED.built_at
	`

	_, err := r.conn.Exec(ctx, query,
		rollup.UserID.String(),
		string(rollup.Period),
		rollup.StartKey,
		rollup.ActiveDays,
		rollup.TopicsCompleted,
		rollup.ProblemsSolved,
		rollup.QuizzesPassed,
		rollup.TimeSpentSeconds,
		rollup.XPEarned,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save period rollup: %w", err)
	}

	return nil
}

// LoadRollup loads a period rollup.
func (r *AnalyticsRepository) LoadRollup(ctx context.Context, userID shared.UserID, period analytics.Period, startKey string) (*analytics.PeriodRollup, error) {
	query := `
		SELECT user_id, period, start_key, active_days, topics_completed, problems_solved,
			   quizzes_passed, time_spent_seconds, xp_earned
		FROM period_rollups
		WHERE user_id = $1 AND period = $2 AND start_key = $3
	`

	var rollup analytics.PeriodRollup
	var uid, p string
	err := r.conn.QueryRow(ctx, query, userID.String(), string(period), startKey).Scan(
		&uid,
		&p,
		&rollup.StartKey,
		&rollup.ActiveDays,
		&rollup.TopicsCompleted,
		&rollup.ProblemsSolved,
		&rollup.QuizzesPassed,
		&rollup.TimeSpentSeconds,
		&rollup.XPEarned,
	)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("analytics", "LoadRollup", shared.ErrNotFound,
			"rollup not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load period rollup: %w", err)
	}
	rollup.UserID = shared.UserID(uid)
	rollup.Period = analytics.Period(p)

	return &rollup, nil
}

// ListActiveUsers returns users with at least one daily record in the
// key range, for the rollup job.
func (r *AnalyticsRepository) ListActiveUsers(ctx context.Context, fromKey, toKey string) ([]shared.UserID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM daily_activity
		WHERE date_key BETWEEN $1 AND $2
		ORDER BY user_id
	`

	rows, err := r.conn.Query(ctx, query, fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []shared.UserID
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, shared.UserID(uid))
	}

	return users, rows.Err()
}

// scanDaily scans a single daily record.
func (r *AnalyticsRepository) scanDaily(row pgx.Row) (*analytics.DailyActivity, error) {
	var daily analytics.DailyActivity
	var uid string
	err := row.Scan(
		&uid,
		&daily.DateKey,
		&daily.TopicsCompleted,
		&daily.ProblemsSolved,
		&daily.QuizzesPassed,
		&daily.TimeSpentSeconds,
		&daily.XPEarned,
		&daily.EventCount,
	)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("analytics", "LoadDaily", shared.ErrNotFound,
			"daily activity not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily activity: %w", err)
	}
	daily.UserID = shared.UserID(uid)

	return &daily, nil
}
