package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func solverDefinition(t *testing.T) Achievement {
	t.Helper()
	for _, def := range DefaultDefinitions() {
		if def.ID == "problem-solving-master" {
			return def
		}
	}
	t.Fatal("problem-solving-master missing from default catalog")
	return Achievement{}
}

func snapshotAt(stats map[CriteriaType]int) StatSnapshot {
	return StatSnapshot{
		UserID: "user-1",
		Stats:  stats,
		At:     time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDefaultDefinitions_AllValid(t *testing.T) {
	defs, err := LoadDefinitions(DefaultDefinitions())
	require.NoError(t, err)
	assert.NotEmpty(t, defs)
}

func TestValidate_RejectsWindowedTimeframe(t *testing.T) {
	for _, tf := range []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly} {
		def := Achievement{
			ID:       "daily-grind",
			Title:    "Daily Grind",
			Criteria: Criteria{Type: CriteriaProblemsSolved, Target: 5, Timeframe: tf},
		}
		err := def.Validate()
		assert.ErrorIs(t, err, shared.ErrInvalidCriteria, string(tf))

		_, loadErr := LoadDefinitions([]Achievement{def})
		assert.Error(t, loadErr, string(tf))
	}

	allTime := Achievement{
		ID:       "solver",
		Title:    "Solver",
		Criteria: Criteria{Type: CriteriaProblemsSolved, Target: 5, Timeframe: TimeframeAllTime},
	}
	assert.NoError(t, allTime.Validate())
}

func TestValidate_RejectsNonAscendingSteps(t *testing.T) {
	def := Achievement{
		ID:       "broken",
		Criteria: Criteria{Type: CriteriaProblemsSolved},
		ProgressSteps: []ProgressStep{
			{Step: 1, Target: 50},
			{Step: 2, Target: 10},
		},
	}
	assert.ErrorIs(t, def.Validate(), shared.ErrStepsNotAscending)

	gap := Achievement{
		ID:       "gapped",
		Criteria: Criteria{Type: CriteriaProblemsSolved},
		ProgressSteps: []ProgressStep{
			{Step: 1, Target: 10},
			{Step: 3, Target: 50},
		},
	}
	assert.Error(t, gap.Validate())
}

func TestEvaluate_SimpleAchievementUnlocksOnce(t *testing.T) {
	ev := NewEvaluator([]Achievement{{
		ID:       "first-steps",
		Title:    "First Steps",
		Criteria: Criteria{Type: CriteriaTopicsCompleted, Target: 1},
		Reward:   Reward{XP: 50},
	}})

	projections := map[string]*UserAchievement{}
	snap := snapshotAt(map[CriteriaType]int{CriteriaTopicsCompleted: 1})

	unlocks, touched := ev.Evaluate(projections, snap)
	require.Len(t, unlocks, 1)
	assert.True(t, unlocks[0].Completed)
	assert.Equal(t, 50, unlocks[0].Reward.XP)
	assert.Len(t, touched, 1)

	ua := projections["first-steps"]
	require.NotNil(t, ua)
	assert.Equal(t, StatusCompleted, ua.Status)
	require.NotNil(t, ua.UnlockedAt)

	// Re-evaluating the same snapshot (retry after a transient failure)
	// must not re-emit the unlock.
	unlocks, touched = ev.Evaluate(projections, snap)
	assert.Empty(t, unlocks)
	assert.Empty(t, touched)
}

func TestEvaluate_ProgressiveStepUnlocksExactlyOnce(t *testing.T) {
	ev := NewEvaluator([]Achievement{solverDefinition(t)})
	projections := map[string]*UserAchievement{}

	// The 10th solve crosses step 1.
	snap := snapshotAt(map[CriteriaType]int{CriteriaProblemsSolved: 10})
	unlocks, _ := ev.Evaluate(projections, snap)
	require.Len(t, unlocks, 1)
	assert.Equal(t, 1, unlocks[0].Step)
	assert.Equal(t, "solver-bronze", unlocks[0].Reward.Badge)
	assert.False(t, unlocks[0].Completed)

	// Calling evaluate twice with currentProgress=10 emits step 1 once.
	unlocks, _ = ev.Evaluate(projections, snap)
	assert.Empty(t, unlocks)

	ua := projections["problem-solving-master"]
	require.NotNil(t, ua)
	assert.Equal(t, StatusInProgress, ua.Status)
	assert.Equal(t, []int{1}, ua.CompletedSteps)
}

func TestEvaluate_BulkJumpEmitsAllCrossedStepsAscending(t *testing.T) {
	// Jumping from 5 to 160 solved problems crosses steps 1, 2 and 3
	// in one evaluation, in ascending order.
	ev := NewEvaluator([]Achievement{solverDefinition(t)})
	projections := map[string]*UserAchievement{}

	_, _ = ev.Evaluate(projections, snapshotAt(map[CriteriaType]int{CriteriaProblemsSolved: 5}))

	unlocks, _ := ev.Evaluate(projections, snapshotAt(map[CriteriaType]int{CriteriaProblemsSolved: 160}))
	require.Len(t, unlocks, 3)
	assert.Equal(t, []int{unlocks[0].Step, unlocks[1].Step, unlocks[2].Step}, []int{1, 2, 3})
	assert.False(t, unlocks[2].Completed, "step 3 is not the final step")
}

func TestEvaluate_FinalStepCompletesAchievement(t *testing.T) {
	ev := NewEvaluator([]Achievement{solverDefinition(t)})
	projections := map[string]*UserAchievement{}

	unlocks, _ := ev.Evaluate(projections, snapshotAt(map[CriteriaType]int{CriteriaProblemsSolved: 500}))
	require.Len(t, unlocks, 4)
	last := unlocks[3]
	assert.Equal(t, 4, last.Step)
	assert.True(t, last.Completed)
	assert.Equal(t, 1000, last.Reward.XP)

	ua := projections["problem-solving-master"]
	assert.Equal(t, StatusCompleted, ua.Status)
}

func TestEvaluate_SkipsDefinitionsWithoutMatchingStat(t *testing.T) {
	ev := NewEvaluator(DefaultDefinitions())
	projections := map[string]*UserAchievement{}

	// Snapshot only carries streak stats, so only streak achievements
	// are considered.
	unlocks, _ := ev.Evaluate(projections, snapshotAt(map[CriteriaType]int{CriteriaStreakDays: 7}))
	require.Len(t, unlocks, 1)
	assert.Equal(t, "week-of-fire", unlocks[0].AchievementID)
}

func TestEvaluate_ConditionsAreANDedAndCheckedFirst(t *testing.T) {
	def := Achievement{
		ID:    "advanced-grinder",
		Title: "Advanced Grinder",
		Criteria: Criteria{
			Type:   CriteriaMockTestsPassed,
			Target: 1,
			Conditions: []Condition{
				{Field: "course_level", Operator: OpIn, Value: ListValue("advanced")},
				{Field: "score", Operator: OpGte, Value: NumberValue(90)},
			},
		},
		Reward: Reward{XP: 10},
	}
	ev := NewEvaluator([]Achievement{def})

	// One condition failing makes the achievement ineligible even
	// though the target is met.
	snap := snapshotAt(map[CriteriaType]int{CriteriaMockTestsPassed: 3})
	snap.Fields = map[string]FieldValue{
		"course_level": StringField("advanced"),
		"score":        NumberField(85),
	}
	unlocks, touched := ev.Evaluate(map[string]*UserAchievement{}, snap)
	assert.Empty(t, unlocks)
	assert.Empty(t, touched)

	// Missing field also fails the condition.
	snap.Fields = map[string]FieldValue{"course_level": StringField("advanced")}
	unlocks, _ = ev.Evaluate(map[string]*UserAchievement{}, snap)
	assert.Empty(t, unlocks)

	// All conditions true: unlocked.
	snap.Fields = map[string]FieldValue{
		"course_level": StringField("advanced"),
		"score":        NumberField(95),
	}
	unlocks, _ = ev.Evaluate(map[string]*UserAchievement{}, snap)
	require.Len(t, unlocks, 1)
}

func TestUserAchievement_StatusIsMonotonic(t *testing.T) {
	ua := NewUserAchievement("user-1", "first-steps")
	assert.Equal(t, StatusLocked, ua.Status)

	ua.updateProgress(1)
	assert.Equal(t, StatusInProgress, ua.Status)

	now := time.Now()
	assert.True(t, ua.complete(now))
	assert.False(t, ua.complete(now), "second completion is a no-op")

	// A later progress update never regresses a completed status.
	ua.updateProgress(0)
	assert.Equal(t, StatusCompleted, ua.Status)
}
