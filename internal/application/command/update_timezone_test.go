package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func TestUpdateTimezone_CreatesStreakLazily(t *testing.T) {
	streaks := newFakeStreakRepo()
	handler := NewUpdateTimezoneHandler(streaks, testLogger())

	result, err := handler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID:   "user-1",
		Timezone: "America/New_York",
	})
	require.NoError(t, err)
	assert.True(t, result.Changed)

	streak, err := streaks.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, shared.Timezone("America/New_York"), streak.Timezone)
	assert.Equal(t, 0, streak.CurrentStreak)
}

func TestUpdateTimezone_PreservesCounters(t *testing.T) {
	streaks := newFakeStreakRepo()
	handler := NewUpdateTimezoneHandler(streaks, testLogger())

	// Build a 2-day streak in UTC first.
	seed := applyFixtureWithStreaks(t, goBasics(t), streaks)
	seed.enroll(t, "user-1", "go-basics")
	day1 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := seed.handler.Handle(context.Background(), completionCmd("v1", "video", day1))
	require.NoError(t, err)
	_, err = seed.handler.Handle(context.Background(), completionCmd("v2", "video", day1.AddDate(0, 0, 1)))
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID:   "user-1",
		Timezone: "Europe/Berlin",
	})
	require.NoError(t, err)
	assert.True(t, result.Changed)

	streak, err := streaks.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, streak.CurrentStreak)
	assert.Equal(t, shared.Timezone("Europe/Berlin"), streak.Timezone)
}

func TestUpdateTimezone_SameZoneIsNoOp(t *testing.T) {
	streaks := newFakeStreakRepo()
	handler := NewUpdateTimezoneHandler(streaks, testLogger())

	_, err := handler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID: "user-1", Timezone: "Asia/Tokyo",
	})
	require.NoError(t, err)

	first, err := streaks.Load(context.Background(), "user-1")
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID: "user-1", Timezone: "Asia/Tokyo",
	})
	require.NoError(t, err)
	assert.False(t, result.Changed)

	second, err := streaks.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
}

func TestUpdateTimezone_RejectsUnknownZone(t *testing.T) {
	handler := NewUpdateTimezoneHandler(newFakeStreakRepo(), testLogger())

	_, err := handler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID: "user-1", Timezone: "Mars/Olympus_Mons",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

// TestUpdateTimezone_AppliedStreakUsesConfiguredZone exercises the
// full wired path: the configured zone, not UTC, decides the day
// boundary. Two sessions on the same New York evening straddle UTC
// midnight; a naive UTC comparison would count two days.
func TestUpdateTimezone_AppliedStreakUsesConfiguredZone(t *testing.T) {
	streaks := newFakeStreakRepo()
	tzHandler := NewUpdateTimezoneHandler(streaks, testLogger())
	_, err := tzHandler.Handle(context.Background(), UpdateTimezoneCommand{
		UserID: "user-1", Timezone: "America/New_York",
	})
	require.NoError(t, err)

	f := applyFixtureWithStreaks(t, goBasics(t), streaks)
	f.enroll(t, "user-1", "go-basics")

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 21:00 and 23:30 local on March 10: 01:00 and 03:30 UTC on
	// March 11 — different UTC dates, same New York date.
	evening := time.Date(2026, 3, 10, 21, 0, 0, 0, ny)
	lateNight := time.Date(2026, 3, 10, 23, 30, 0, 0, ny)

	res1, err := f.handler.Handle(context.Background(), completionCmd("v1", "video", evening))
	require.NoError(t, err)
	assert.Equal(t, 1, res1.CurrentStreak)

	res2, err := f.handler.Handle(context.Background(), completionCmd("v2", "video", lateNight))
	require.NoError(t, err)
	assert.Equal(t, 1, res2.CurrentStreak, "same local day must not extend the streak")

	// The next local day extends it.
	res3, err := f.handler.Handle(context.Background(), completionCmd("v3", "video", evening.AddDate(0, 0, 1)))
	require.NoError(t, err)
	assert.Equal(t, 2, res3.CurrentStreak)
}
