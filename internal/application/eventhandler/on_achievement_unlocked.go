package eventhandler

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/application/saga"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT UNLOCKED HANDLER
// Передаёт разблокировку в unlock flow: уведомление и запись XP.
// ═══════════════════════════════════════════════════════════════════════════

// OnAchievementUnlockedHandler обрабатывает события разблокировки.
type OnAchievementUnlockedHandler struct {
	flow *saga.UnlockFlowSaga
	log  *logger.Logger
}

// NewOnAchievementUnlockedHandler создаёт новый обработчик.
func NewOnAchievementUnlockedHandler(flow *saga.UnlockFlowSaga, log *logger.Logger) *OnAchievementUnlockedHandler {
	return &OnAchievementUnlockedHandler{flow: flow, log: log}
}

// Handle обрабатывает событие. Совместим с shared.EventHandler.
func (h *OnAchievementUnlockedHandler) Handle(event shared.Event) error {
	unlock, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())))
		return nil
	}

	_, err := h.flow.Execute(context.Background(), saga.UnlockInput{
		UserID:        unlock.UserID,
		AchievementID: unlock.AchievementID,
		Step:          unlock.Step,
		XP:            unlock.XPAwarded,
		Badge:         unlock.Badge,
		UnlockedAt:    unlock.OccurredAt(),
	})
	if err != nil {
		h.log.Error("unlock flow failed",
			logger.UserID(unlock.UserID),
			logger.AchievementID(unlock.AchievementID),
			logger.Err(err))
	}
	return err
}
