package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD TEST STATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// TestLister enumerates stored mock-test definitions. Implemented by
// the postgres test repository.
type TestLister interface {
	ListTestIDs(ctx context.Context) ([]string, error)
}

// RebuildTestStatsJob recomputes the per-test aggregates (pass rate,
// average, highest score) from the full attempt history. Aggregates
// are derived data: a missed run only means stale numbers until the
// next one, so per-test failures are logged and the pass continues.
type RebuildTestStatsJob struct {
	tests    TestLister
	attempts assessment.AttemptRepository
	stats    assessment.StatsRepository
	config   RebuildTestStatsConfig
	logger   *logger.Logger

	lastRunStats atomic.Value // *RebuildTestStatsStats
}

// RebuildTestStatsConfig contains configuration for the rebuild job.
type RebuildTestStatsConfig struct {
	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultRebuildTestStatsConfig returns sensible defaults.
func DefaultRebuildTestStatsConfig() RebuildTestStatsConfig {
	return RebuildTestStatsConfig{
		Timeout: 10 * time.Minute,
	}
}

// RebuildTestStatsStats contains statistics from one rebuild run.
type RebuildTestStatsStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	TestsRebuilt int
	Errors       int
}

// NewRebuildTestStatsJob creates a stats rebuild job.
func NewRebuildTestStatsJob(
	tests TestLister,
	attempts assessment.AttemptRepository,
	stats assessment.StatsRepository,
	config RebuildTestStatsConfig,
	log *logger.Logger,
) *RebuildTestStatsJob {
	if log == nil {
		log = logger.Default()
	}
	return &RebuildTestStatsJob{
		tests:    tests,
		attempts: attempts,
		stats:    stats,
		config:   config,
		logger:   log.With(logger.String("job", "rebuild_test_stats")),
	}
}

// Name returns the job name.
func (j *RebuildTestStatsJob) Name() string {
	return "rebuild_test_stats"
}

// Description returns a human-readable description.
func (j *RebuildTestStatsJob) Description() string {
	return "Recomputes per-test aggregates from the attempt history"
}

// Run executes one rebuild pass.
func (j *RebuildTestStatsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildTestStatsStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	ids, err := j.tests.ListTestIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tests: %w", err)
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := j.rebuildOne(ctx, id); err != nil {
			stats.Errors++
			j.logger.Error("failed to rebuild test stats",
				logger.MockTestID(id),
				logger.Err(err))
			continue
		}
		stats.TestsRebuilt++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("test stats rebuild completed",
		logger.Duration("duration", stats.Duration),
		logger.Int("tests_rebuilt", stats.TestsRebuilt),
		logger.Int("errors", stats.Errors))

	return nil
}

// rebuildOne recomputes aggregates for a single test.
func (j *RebuildTestStatsJob) rebuildOne(ctx context.Context, mockTestID string) error {
	attempts, err := j.attempts.ListAllGraded(ctx, mockTestID)
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}

	rebuilt := assessment.BuildTestStats(mockTestID, attempts)
	if err := j.stats.SaveStats(ctx, rebuilt); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	return nil
}

// LastRunStats returns statistics from the last run.
func (j *RebuildTestStatsJob) LastRunStats() *RebuildTestStatsStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildTestStatsStats)
}
