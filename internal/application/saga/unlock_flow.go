// Package saga contains multi-step business processes that coordinate
// several domain operations.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
	"github.com/devprep-hub/devprep-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK FLOW SAGA
// Post-unlock process for one achievement or progressive step:
// Load Definition → Build Notification → Send → Record XP → Done.
// The unlock itself is already persisted by the command that detected
// it; this flow only handles the celebration side effects, so every
// step after the definition load is non-critical.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockInput identifies one unlock to celebrate.
type UnlockInput struct {
	// UserID - who unlocked.
	UserID string

	// AchievementID - which definition.
	AchievementID string

	// Step - progressive step number, 0 for simple achievements.
	Step int

	// XP and Badge - the reward granted.
	XP    int
	Badge string

	// UnlockedAt - when the unlock happened.
	UnlockedAt time.Time
}

// Validate checks the input.
func (i UnlockInput) Validate() error {
	if i.UserID == "" {
		return errors.New("unlock_flow: user id is required")
	}
	if i.AchievementID == "" {
		return errors.New("unlock_flow: achievement id is required")
	}
	return nil
}

// UnlockFlowResult describes what the flow managed to do.
type UnlockFlowResult struct {
	NotificationSent bool
	XPRecorded       bool
	ProcessedAt      time.Time
}

// UnlockFlowStep names a step for error reporting.
type UnlockFlowStep string

const (
	StepLoadDefinition UnlockFlowStep = "load_definition"
	StepBuildNotice    UnlockFlowStep = "build_notification"
	StepSendNotice     UnlockFlowStep = "send_notification"
	StepRecordXP       UnlockFlowStep = "record_xp"
	StepUnlockComplete UnlockFlowStep = "complete"
)

// UnlockFlowSaga celebrates achievement unlocks.
type UnlockFlowSaga struct {
	definitions   achievement.DefinitionRepository
	sender        notification.Sender
	notifications notification.Repository
	analyticsRepo analytics.Repository
	log           *logger.Logger
}

// NewUnlockFlowSaga creates a new UnlockFlowSaga.
func NewUnlockFlowSaga(
	definitions achievement.DefinitionRepository,
	sender notification.Sender,
	notifications notification.Repository,
	analyticsRepo analytics.Repository,
	log *logger.Logger,
) *UnlockFlowSaga {
	return &UnlockFlowSaga{
		definitions:   definitions,
		sender:        sender,
		notifications: notifications,
		analyticsRepo: analyticsRepo,
		log:           log,
	}
}

// Execute runs the flow. Only the definition load can fail the saga:
// a missing definition means the unlock references a retired
// achievement and there is nothing sensible to celebrate.
func (s *UnlockFlowSaga) Execute(ctx context.Context, input UnlockInput) (*UnlockFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.UnlockedAt.IsZero() {
		input.UnlockedAt = time.Now()
	}

	def, err := s.definitions.GetDefinition(ctx, input.AchievementID)
	if err != nil {
		return nil, fmt.Errorf("unlock_flow: %s: %w", StepLoadDefinition, err)
	}

	result := &UnlockFlowResult{ProcessedAt: time.Now()}

	notice, err := s.buildNotification(input, def)
	if err != nil {
		s.log.Warn("unlock notification build failed",
			logger.String("step", string(StepBuildNotice)),
			logger.AchievementID(input.AchievementID),
			logger.Err(err))
	} else {
		if err := s.sender.Send(ctx, notice); err != nil {
			s.log.Warn("unlock notification send failed",
				logger.String("step", string(StepSendNotice)),
				logger.UserID(input.UserID),
				logger.Err(err))
		} else {
			result.NotificationSent = true
			if err := s.notifications.Save(ctx, notice); err != nil {
				s.log.Warn("unlock notification save failed", logger.Err(err))
			}
		}
	}

	if input.XP > 0 {
		if err := s.recordXP(ctx, input); err != nil {
			s.log.Warn("unlock xp record failed",
				logger.String("step", string(StepRecordXP)),
				logger.UserID(input.UserID),
				logger.Err(err))
		} else {
			result.XPRecorded = true
		}
	}
	return result, nil
}

// buildNotification renders the celebration message.
func (s *UnlockFlowSaga) buildNotification(input UnlockInput, def *achievement.Achievement) (*notification.Notification, error) {
	title := fmt.Sprintf("Achievement unlocked: %s", def.Title)
	body := def.Description
	if input.Step > 0 {
		title = fmt.Sprintf("Step %d of %s reached", input.Step, def.Title)
		body = fmt.Sprintf("You crossed step %d. Keep going!", input.Step)
	}

	notice, err := notification.New(shared.UserID(input.UserID), notification.TypeAchievementUnlocked, title, body)
	if err != nil {
		return nil, err
	}
	notice = notice.WithPayload("achievement_id", input.AchievementID)
	if input.Step > 0 {
		notice = notice.WithPayload("step", strconv.Itoa(input.Step))
	}
	if input.XP > 0 {
		notice = notice.WithPayload("xp", strconv.Itoa(input.XP))
	}
	if input.Badge != "" {
		notice = notice.WithPayload("badge", input.Badge)
	}
	return notice, nil
}

// recordXP folds the reward into the daily analytics record. This is
// the only writer of unlock XP, keeping the counter single-owner.
func (s *UnlockFlowSaga) recordXP(ctx context.Context, input UnlockInput) error {
	userID := shared.UserID(input.UserID)
	dateKey := timeutil.DateKey(input.UnlockedAt, time.UTC)

	daily, err := s.analyticsRepo.LoadDaily(ctx, userID, dateKey)
	if err != nil {
		if !shared.IsNotFound(err) {
			return err
		}
		daily = analytics.NewDailyActivity(userID, input.UnlockedAt, time.UTC)
	}
	daily.Apply(analytics.ActivityDelta{XPEarned: input.XP})
	return s.analyticsRepo.SaveDaily(ctx, daily)
}
