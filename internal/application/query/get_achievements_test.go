package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func achievementsFixture(t *testing.T, projections map[string]*achievement.UserAchievement) *GetAchievementsHandler {
	t.Helper()
	defs, err := achievement.LoadDefinitions(achievement.DefaultDefinitions())
	require.NoError(t, err)
	return NewGetAchievementsHandler(
		&fakeDefinitionRepo{defs: defs},
		&fakeUserAchievementRepo{projections: projections},
	)
}

func completedProjection(userID, achievementID string, progress int) *achievement.UserAchievement {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &achievement.UserAchievement{
		UserID:          shared.UserID(userID),
		AchievementID:   achievementID,
		CurrentProgress: progress,
		Status:          achievement.StatusCompleted,
		UnlockedAt:      &at,
		Version:         1,
	}
}

func TestGetAchievements_SecretHiddenUntilUnlocked(t *testing.T) {
	handler := achievementsFixture(t, map[string]*achievement.UserAchievement{})

	result, err := handler.Handle(context.Background(), GetAchievementsQuery{UserID: "user-1"})
	require.NoError(t, err)

	for _, a := range result.Achievements {
		assert.NotEqual(t, "interview-ready", a.ID, "secret achievement must stay hidden")
	}
	assert.Equal(t, 0, result.UnlockedCount)
}

func TestGetAchievements_SecretVisibleOnceCompleted(t *testing.T) {
	handler := achievementsFixture(t, map[string]*achievement.UserAchievement{
		"interview-ready": completedProjection("user-1", "interview-ready", 5),
	})

	result, err := handler.Handle(context.Background(), GetAchievementsQuery{UserID: "user-1"})
	require.NoError(t, err)

	var found bool
	for _, a := range result.Achievements {
		if a.ID == "interview-ready" {
			found = true
			assert.Equal(t, string(achievement.StatusCompleted), a.Status)
			assert.NotNil(t, a.UnlockedAt)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1, result.UnlockedCount)
	assert.Equal(t, 750, result.TotalXP)
}

func TestGetAchievements_ProgressiveStepsAndXP(t *testing.T) {
	ua := &achievement.UserAchievement{
		UserID:          "user-1",
		AchievementID:   "problem-solving-master",
		CurrentProgress: 60,
		Status:          achievement.StatusInProgress,
		CompletedSteps:  []int{1, 2},
		Version:         2,
	}
	handler := achievementsFixture(t, map[string]*achievement.UserAchievement{
		"problem-solving-master": ua,
	})

	result, err := handler.Handle(context.Background(), GetAchievementsQuery{UserID: "user-1"})
	require.NoError(t, err)

	var dto *AchievementDTO
	for i := range result.Achievements {
		if result.Achievements[i].ID == "problem-solving-master" {
			dto = &result.Achievements[i]
		}
	}
	require.NotNil(t, dto)
	assert.Equal(t, 500, dto.Target, "target is the final step threshold")
	require.Len(t, dto.Steps, 4)
	assert.True(t, dto.Steps[0].Completed)
	assert.True(t, dto.Steps[1].Completed)
	assert.False(t, dto.Steps[2].Completed)
	// Step XP: 50 + 200.
	assert.Equal(t, 250, result.TotalXP)
}

func TestGetAchievements_OnlyUnlockedFilter(t *testing.T) {
	handler := achievementsFixture(t, map[string]*achievement.UserAchievement{
		"first-steps": completedProjection("user-1", "first-steps", 1),
	})

	result, err := handler.Handle(context.Background(), GetAchievementsQuery{
		UserID: "user-1", OnlyUnlocked: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "first-steps", result.Achievements[0].ID)
}
