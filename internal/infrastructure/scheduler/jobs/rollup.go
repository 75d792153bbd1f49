// Package jobs contains the engine's scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
	"github.com/devprep-hub/devprep-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLLUP JOB
// ══════════════════════════════════════════════════════════════════════════════

// RollupJob rebuilds weekly or monthly activity rollups from the daily
// records. Rebuilding is idempotent: each run replaces the rollup for
// the period wholesale, so late-arriving daily updates are picked up by
// the next run. Period boundaries are computed in UTC; the per-user
// timezone only affects which daily bucket an event lands in.
type RollupJob struct {
	analytics analytics.Repository
	period    analytics.Period
	config    RollupConfig
	logger    *logger.Logger

	lastRunStats atomic.Value // *RollupStats
}

// RollupConfig contains configuration for the rollup job.
type RollupConfig struct {
	// IncludePrevious also rebuilds the previous period, so daily
	// records written just before a period boundary still make it
	// into the closed period's rollup.
	IncludePrevious bool

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultRollupConfig returns sensible defaults.
func DefaultRollupConfig() RollupConfig {
	return RollupConfig{
		IncludePrevious: true,
		Timeout:         10 * time.Minute,
	}
}

// RollupStats contains statistics from one rollup run.
type RollupStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	UsersProcessed int
	RollupsWritten int
	Errors         int
}

// NewRollupJob creates a rollup job for the given period.
func NewRollupJob(repo analytics.Repository, period analytics.Period, config RollupConfig, log *logger.Logger) *RollupJob {
	if log == nil {
		log = logger.Default()
	}
	return &RollupJob{
		analytics: repo,
		period:    period,
		config:    config,
		logger:    log.With(logger.String("job", "rollup_"+string(period))),
	}
}

// Name returns the job name.
func (j *RollupJob) Name() string {
	return "rollup_" + string(j.period)
}

// Description returns a human-readable description.
func (j *RollupJob) Description() string {
	return fmt.Sprintf("Rebuilds %s activity rollups from daily records", j.period)
}

// Run executes one rollup pass.
func (j *RollupJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RollupStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	now := time.Now().UTC()
	starts := j.periodStarts(now)

	// One ListActiveUsers call covers every period being rebuilt.
	fromKey := timeutil.DateKey(starts[len(starts)-1], time.UTC)
	toKey := timeutil.DateKey(now, time.UTC)

	users, err := j.analytics.ListActiveUsers(ctx, fromKey, toKey)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats.UsersProcessed++
		for _, start := range starts {
			if err := j.rebuildPeriod(ctx, userID, start, now); err != nil {
				stats.Errors++
				j.logger.Error("failed to rebuild rollup",
					logger.UserID(userID.String()),
					logger.String("start_key", timeutil.DateKey(start, time.UTC)),
					logger.Err(err))
				continue
			}
			stats.RollupsWritten++
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("rollup job completed",
		logger.Duration("duration", stats.Duration),
		logger.Int("users", stats.UsersProcessed),
		logger.Int("rollups_written", stats.RollupsWritten),
		logger.Int("errors", stats.Errors))

	return nil
}

// periodStarts returns the period start times to rebuild, current
// period first.
func (j *RollupJob) periodStarts(now time.Time) []time.Time {
	var current, previous time.Time
	switch j.period {
	case analytics.PeriodMonthly:
		current = timeutil.StartOfMonth(now, time.UTC)
		previous = timeutil.StartOfMonth(current.AddDate(0, 0, -1), time.UTC)
	default:
		current = timeutil.StartOfWeek(now, time.UTC)
		previous = current.AddDate(0, 0, -7)
	}

	if !j.config.IncludePrevious {
		return []time.Time{current}
	}
	return []time.Time{current, previous}
}

// periodEnd returns the last day of the period starting at start.
func (j *RollupJob) periodEnd(start time.Time) time.Time {
	if j.period == analytics.PeriodMonthly {
		return start.AddDate(0, 1, -1)
	}
	return start.AddDate(0, 0, 6)
}

// rebuildPeriod rebuilds one (user, period) rollup from daily records.
func (j *RollupJob) rebuildPeriod(ctx context.Context, userID shared.UserID, start, now time.Time) error {
	startKey := timeutil.DateKey(start, time.UTC)
	endKey := timeutil.DateKey(j.periodEnd(start), time.UTC)

	days, err := j.analytics.ListDailyRange(ctx, userID, startKey, endKey)
	if err != nil {
		return fmt.Errorf("failed to list daily records: %w", err)
	}

	rollup := analytics.BuildRollup(userID, j.period, startKey, days, now)
	if err := j.analytics.SaveRollup(ctx, rollup); err != nil {
		return fmt.Errorf("failed to save rollup: %w", err)
	}

	return nil
}

// LastRunStats returns statistics from the last run.
func (j *RollupJob) LastRunStats() *RollupStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RollupStats)
}
