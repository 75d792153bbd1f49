package eventhandler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON STREAK CHANGED HANDLER
// Обрабатывает продление и обрыв серии. Поздравления отправляются
// только на milestone-отметках, иначе ежедневный пользователь получал
// бы уведомление каждый день.
// ═══════════════════════════════════════════════════════════════════════════

// OnStreakChangedHandler обрабатывает события серии.
type OnStreakChangedHandler struct {
	sender        notification.Sender
	notifications notification.Repository
	log           *logger.Logger
	config        StreakChangedConfig
}

// StreakChangedConfig содержит конфигурацию обработчика.
type StreakChangedConfig struct {
	// Milestones - отметки серии, на которых поздравляем.
	Milestones []int

	// MinStreakToMourn - минимальная потерянная серия, о которой
	// стоит сообщать. Обрыв серии из одного дня не заслуживает
	// уведомления.
	MinStreakToMourn int
}

// DefaultStreakChangedConfig возвращает конфигурацию по умолчанию.
func DefaultStreakChangedConfig() StreakChangedConfig {
	return StreakChangedConfig{
		Milestones:       []int{3, 7, 14, 30, 60, 100, 365},
		MinStreakToMourn: 3,
	}
}

// NewOnStreakChangedHandler создаёт новый обработчик.
func NewOnStreakChangedHandler(
	sender notification.Sender,
	notifications notification.Repository,
	log *logger.Logger,
	config StreakChangedConfig,
) *OnStreakChangedHandler {
	if len(config.Milestones) == 0 {
		config = DefaultStreakChangedConfig()
	}
	return &OnStreakChangedHandler{
		sender:        sender,
		notifications: notifications,
		log:           log,
		config:        config,
	}
}

// Handle обрабатывает событие. Совместим с shared.EventHandler.
func (h *OnStreakChangedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	switch e := event.(type) {
	case shared.StreakExtendedEvent:
		if !h.isMilestone(e.CurrentStreak) {
			return nil
		}
		return h.notify(ctx, e.UserID, notification.TypeStreakMilestone,
			fmt.Sprintf("%d days in a row!", e.CurrentStreak),
			"Your daily streak hit a new milestone. Keep the momentum!",
			map[string]string{
				"current_streak": strconv.Itoa(e.CurrentStreak),
				"longest_streak": strconv.Itoa(e.LongestStreak),
			})
	case shared.StreakBrokenEvent:
		if e.PreviousStreak < h.config.MinStreakToMourn {
			return nil
		}
		return h.notify(ctx, e.UserID, notification.TypeStreakBroken,
			"Streak reset",
			fmt.Sprintf("Your %d-day streak ended. Today is a good day to start a new one.", e.PreviousStreak),
			map[string]string{
				"previous_streak": strconv.Itoa(e.PreviousStreak),
				"days_missed":     strconv.Itoa(e.DaysMissed),
			})
	default:
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())))
		return nil
	}
}

// isMilestone проверяет, является ли значение milestone-отметкой.
func (h *OnStreakChangedHandler) isMilestone(streak int) bool {
	for _, m := range h.config.Milestones {
		if streak == m {
			return true
		}
	}
	return false
}

// notify строит, отправляет и сохраняет уведомление.
func (h *OnStreakChangedHandler) notify(
	ctx context.Context,
	userID string,
	t notification.Type,
	title, body string,
	payload map[string]string,
) error {
	notice, err := notification.New(shared.UserID(userID), t, title, body)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}
	for key, value := range payload {
		notice = notice.WithPayload(key, value)
	}

	if err := h.sender.Send(ctx, notice); err != nil {
		h.log.Warn("streak notification send failed",
			logger.UserID(userID),
			logger.String("type", string(t)),
			logger.Err(err))
		return nil
	}
	if err := h.notifications.Save(ctx, notice); err != nil {
		h.log.Warn("streak notification save failed", logger.Err(err))
	}
	return nil
}
