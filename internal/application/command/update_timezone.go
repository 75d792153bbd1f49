package command

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
	"github.com/devprep-hub/devprep-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE TIMEZONE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateTimezoneCommand sets the learner's timezone. Streak day
// boundaries are computed in this zone.
type UpdateTimezoneCommand struct {
	// UserID is the learner.
	UserID string

	// Timezone is an IANA zone name. Empty resets to UTC.
	Timezone string
}

// Validate validates the command. The zone must resolve so that a
// typo never silently degrades a learner to UTC day boundaries.
func (c UpdateTimezoneCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("progress", "UpdateTimezone", shared.ErrInvalidID,
			"user id is required")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return shared.NewDomainError("progress", "UpdateTimezone", shared.ErrInvalidInput,
				"unknown timezone: "+c.Timezone)
		}
	}
	return nil
}

// UpdateTimezoneResult describes the outcome.
type UpdateTimezoneResult struct {
	UserID   string
	Timezone string

	// Changed is false when the streak already carried this zone and
	// the command was a no-op.
	Changed bool

	UpdatedAt time.Time
}

// UpdateTimezoneHandler handles the UpdateTimezone command.
type UpdateTimezoneHandler struct {
	streakRepo progress.StreakRepository
	log        *logger.Logger
	retrier    *retry.Retrier
}

// NewUpdateTimezoneHandler creates a new UpdateTimezoneHandler.
func NewUpdateTimezoneHandler(streakRepo progress.StreakRepository, log *logger.Logger) *UpdateTimezoneHandler {
	return &UpdateTimezoneHandler{
		streakRepo: streakRepo,
		log:        log,
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithRetryIf(shared.IsVersionConflict),
		),
	}
}

// Handle persists the zone on the streak document, creating it lazily
// so the zone configured before the first activity still applies to
// that activity's day bucketing.
func (h *UpdateTimezoneHandler) Handle(ctx context.Context, cmd UpdateTimezoneCommand) (*UpdateTimezoneResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID := shared.UserID(cmd.UserID)
	tz := shared.Timezone(cmd.Timezone)
	result := &UpdateTimezoneResult{UserID: cmd.UserID, Timezone: cmd.Timezone}

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		streak, err := h.streakRepo.Load(ctx, userID)
		switch {
		case err == nil:
		case shared.IsNotFound(err):
			streak = progress.NewStreak(userID, "")
		default:
			return retry.Permanent(err)
		}

		result.Changed = streak.SetTimezone(tz)
		if !result.Changed && streak.Version > 0 {
			return nil
		}

		if err := h.streakRepo.Save(ctx, streak, streak.Version); err != nil {
			if shared.IsVersionConflict(err) {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.UpdatedAt = time.Now()
	h.log.Info("timezone updated",
		logger.UserID(cmd.UserID),
		logger.String("timezone", cmd.Timezone),
		logger.Bool("changed", result.Changed))
	return result, nil
}
