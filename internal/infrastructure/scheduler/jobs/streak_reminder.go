package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakReminderJob warns learners whose streak will break at their
// local midnight unless they show activity today. At most one
// streak_at_risk notification goes out per user per day; the sent
// journal is the dedup source, so overlapping runs stay quiet.
type StreakReminderJob struct {
	streaks       progress.StreakRepository
	notifications notification.Repository
	sender        notification.Sender
	config        StreakReminderConfig
	logger        *logger.Logger

	lastRunStats atomic.Value // *StreakReminderStats
}

// StreakReminderConfig contains configuration for the reminder job.
type StreakReminderConfig struct {
	// BatchLimit caps how many at-risk streaks one run examines.
	BatchLimit int

	// MinStreakDays skips reminders for streaks shorter than this;
	// a one-day streak is not worth interrupting anyone over.
	MinStreakDays int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultStreakReminderConfig returns sensible defaults.
func DefaultStreakReminderConfig() StreakReminderConfig {
	return StreakReminderConfig{
		BatchLimit:    500,
		MinStreakDays: 2,
		Timeout:       5 * time.Minute,
	}
}

// StreakReminderStats contains statistics from one reminder run.
type StreakReminderStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	StreaksExamined  int
	RemindersSent    int
	SkippedNotAtRisk int
	SkippedDuplicate int
	SkippedTooShort  int
	Errors           int
}

// NewStreakReminderJob creates a streak reminder job.
func NewStreakReminderJob(
	streaks progress.StreakRepository,
	notifications notification.Repository,
	sender notification.Sender,
	config StreakReminderConfig,
	log *logger.Logger,
) *StreakReminderJob {
	if log == nil {
		log = logger.Default()
	}
	return &StreakReminderJob{
		streaks:       streaks,
		notifications: notifications,
		sender:        sender,
		config:        config,
		logger:        log.With(logger.String("job", "streak_reminder")),
	}
}

// Name returns the job name.
func (j *StreakReminderJob) Name() string {
	return "streak_reminder"
}

// Description returns a human-readable description.
func (j *StreakReminderJob) Description() string {
	return "Reminds learners whose streak breaks at midnight without activity"
}

// Run executes one reminder pass.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &StreakReminderStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	atRisk, err := j.streaks.ListAtRisk(ctx, j.config.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to list at-risk streaks: %w", err)
	}

	now := time.Now()
	for _, streak := range atRisk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats.StreaksExamined++
		if err := j.remind(ctx, streak, now, stats); err != nil {
			stats.Errors++
			j.logger.Error("failed to send streak reminder",
				logger.UserID(streak.UserID.String()),
				logger.Err(err))
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("streak reminder job completed",
		logger.Duration("duration", stats.Duration),
		logger.Int("examined", stats.StreaksExamined),
		logger.Int("sent", stats.RemindersSent),
		logger.Int("duplicates_skipped", stats.SkippedDuplicate),
		logger.Int("errors", stats.Errors))

	return nil
}

// remind processes a single at-risk streak.
func (j *StreakReminderJob) remind(ctx context.Context, streak *progress.Streak, now time.Time, stats *StreakReminderStats) error {
	// The repository query is a coarse filter; the entity re-checks
	// in the user's own timezone.
	if !streak.IsAtRisk(now) {
		stats.SkippedNotAtRisk++
		return nil
	}
	if streak.CurrentStreak < j.config.MinStreakDays {
		stats.SkippedTooShort++
		return nil
	}

	sent, err := j.notifications.SentToday(ctx, streak.UserID.String(), notification.TypeStreakAtRisk)
	if err != nil {
		return fmt.Errorf("failed to check sent journal: %w", err)
	}
	if sent {
		stats.SkippedDuplicate++
		return nil
	}

	n, err := notification.New(
		streak.UserID,
		notification.TypeStreakAtRisk,
		"Your streak is at risk",
		fmt.Sprintf("Your %d-day streak ends at midnight. Complete any topic to keep it going.", streak.CurrentStreak),
	)
	if err != nil {
		return err
	}
	n.WithPayload("current_streak", fmt.Sprintf("%d", streak.CurrentStreak))

	if err := j.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	if err := j.notifications.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to record reminder: %w", err)
	}

	stats.RemindersSent++
	return nil
}

// LastRunStats returns statistics from the last run.
func (j *StreakReminderJob) LastRunStats() *StreakReminderStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*StreakReminderStats)
}
