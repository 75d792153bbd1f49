package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progress",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_assessment",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_analytics_notifications",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROGRESS, STREAKS, ENROLLMENTS, ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: progress documents, streaks, enrollments, achievement projections
-- Version: 001

-- Per (user, course) progress document. The whole aggregate is stored
-- as JSONB; the version column exists only for compare-and-swap, it
-- mirrors the version inside the document.
CREATE TABLE IF NOT EXISTS course_progress (
    user_id VARCHAR(64) NOT NULL,
    course_id VARCHAR(64) NOT NULL,
    doc JSONB NOT NULL,
    version BIGINT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_course_progress_user ON course_progress(user_id);

-- One streak row per user. current_streak and last_active_date are
-- lifted out of the document so the at-risk scan stays a plain query.
CREATE TABLE IF NOT EXISTS streaks (
    user_id VARCHAR(64) PRIMARY KEY,
    doc JSONB NOT NULL,
    version BIGINT NOT NULL,
    current_streak INTEGER NOT NULL DEFAULT 0,
    last_active_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_streaks_at_risk ON streaks(last_active_date) WHERE current_streak > 0;

CREATE TABLE IF NOT EXISTS enrollments (
    user_id VARCHAR(64) NOT NULL,
    course_id VARCHAR(64) NOT NULL,
    status VARCHAR(20) NOT NULL,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,

    PRIMARY KEY (user_id, course_id),
    CONSTRAINT valid_enrollment_status CHECK (status IN ('active', 'completed', 'dropped'))
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user_status ON enrollments(user_id, status);

-- Per (user, achievement) projection, same document-plus-version shape
-- as course_progress.
CREATE TABLE IF NOT EXISTS user_achievements (
    user_id VARCHAR(64) NOT NULL,
    achievement_id VARCHAR(64) NOT NULL,
    doc JSONB NOT NULL,
    version BIGINT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, achievement_id)
);
`

const migration001Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS enrollments;
DROP TABLE IF EXISTS streaks;
DROP TABLE IF EXISTS course_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: MOCK TESTS, ATTEMPTS, QUIZ ATTEMPTS, PATHS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: assessment definitions and attempt journals
-- Version: 002

CREATE TABLE IF NOT EXISTS mock_tests (
    id VARCHAR(64) PRIMARY KEY,
    doc JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Attempts are insert-only: an attempt is graded before it is saved
-- and never updated afterwards.
CREATE TABLE IF NOT EXISTS attempts (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    mock_test_id VARCHAR(64) NOT NULL,
    attempt_number INTEGER NOT NULL,
    total_score DECIMAL(5,2) NOT NULL,
    passed BOOLEAN NOT NULL,
    doc JSONB NOT NULL,
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,

    UNIQUE (user_id, mock_test_id, attempt_number)
);

CREATE INDEX IF NOT EXISTS idx_attempts_user_test ON attempts(user_id, mock_test_id, attempt_number);
CREATE INDEX IF NOT EXISTS idx_attempts_test ON attempts(mock_test_id);
CREATE INDEX IF NOT EXISTS idx_attempts_user_passed ON attempts(user_id) WHERE passed;

CREATE TABLE IF NOT EXISTS quiz_attempts (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    course_id VARCHAR(64) NOT NULL,
    concept_id VARCHAR(64) NOT NULL,
    passed BOOLEAN NOT NULL,
    doc JSONB NOT NULL,
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user_concept ON quiz_attempts(user_id, concept_id);
CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user_passed ON quiz_attempts(user_id) WHERE passed;

CREATE TABLE IF NOT EXISTS test_stats (
    mock_test_id VARCHAR(64) PRIMARY KEY,
    total_attempts INTEGER NOT NULL,
    pass_rate DECIMAL(5,2) NOT NULL,
    average_score DECIMAL(5,2) NOT NULL,
    highest_score DECIMAL(5,2) NOT NULL,
    rebuilt_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS learning_paths (
    id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    doc JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration002Down = `
DROP TABLE IF EXISTS learning_paths;
DROP TABLE IF EXISTS test_stats;
DROP TABLE IF EXISTS quiz_attempts;
DROP TABLE IF EXISTS attempts;
DROP TABLE IF EXISTS mock_tests;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: DAILY ANALYTICS, ROLLUPS, NOTIFICATION JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: daily activity counters, period rollups, notification journal
-- Version: 003

-- Date keys are YYYY-MM-DD strings in the user's timezone, so the day
-- boundary matches the streak tracker.
CREATE TABLE IF NOT EXISTS daily_activity (
    user_id VARCHAR(64) NOT NULL,
    date_key CHAR(10) NOT NULL,
    topics_completed INTEGER NOT NULL DEFAULT 0,
    problems_solved INTEGER NOT NULL DEFAULT 0,
    quizzes_passed INTEGER NOT NULL DEFAULT 0,
    time_spent_seconds INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    event_count INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (user_id, date_key)
);

CREATE INDEX IF NOT EXISTS idx_daily_activity_date ON daily_activity(date_key);

CREATE TABLE IF NOT EXISTS period_rollups (
    user_id VARCHAR(64) NOT NULL,
    period VARCHAR(10) NOT NULL,
    start_key CHAR(10) NOT NULL,
    active_days INTEGER NOT NULL DEFAULT 0,
    topics_completed INTEGER NOT NULL DEFAULT 0,
    problems_solved INTEGER NOT NULL DEFAULT 0,
    quizzes_passed INTEGER NOT NULL DEFAULT 0,
    time_spent_seconds INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    built_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, period, start_key),
    CONSTRAINT valid_period CHECK (period IN ('weekly', 'monthly'))
);

CREATE TABLE IF NOT EXISTS notifications (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    type VARCHAR(40) NOT NULL,
    priority VARCHAR(10) NOT NULL,
    title VARCHAR(200) NOT NULL,
    body TEXT NOT NULL,
    payload JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_user_type_created ON notifications(user_id, type, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS notifications;
DROP TABLE IF EXISTS period_rollups;
DROP TABLE IF EXISTS daily_activity;
`
