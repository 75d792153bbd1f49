// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS MILESTONE HANDLER
// Обрабатывает завершение концепта и курса: поздравляет пользователя.
// Уведомления не критичны - любая ошибка логируется и проглатывается,
// событие считается обработанным.
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressMilestoneHandler обрабатывает события прогресса.
type OnProgressMilestoneHandler struct {
	sender        notification.Sender
	notifications notification.Repository
	log           *logger.Logger
	config        ProgressMilestoneConfig
}

// ProgressMilestoneConfig содержит конфигурацию обработчика.
type ProgressMilestoneConfig struct {
	// NotifyConceptCompleted - поздравлять ли с завершением концепта.
	NotifyConceptCompleted bool

	// NotifyCourseCompleted - поздравлять ли с завершением курса.
	NotifyCourseCompleted bool
}

// DefaultProgressMilestoneConfig возвращает конфигурацию по умолчанию.
func DefaultProgressMilestoneConfig() ProgressMilestoneConfig {
	return ProgressMilestoneConfig{
		NotifyConceptCompleted: true,
		NotifyCourseCompleted:  true,
	}
}

// NewOnProgressMilestoneHandler создаёт новый обработчик.
func NewOnProgressMilestoneHandler(
	sender notification.Sender,
	notifications notification.Repository,
	log *logger.Logger,
	config ProgressMilestoneConfig,
) *OnProgressMilestoneHandler {
	return &OnProgressMilestoneHandler{
		sender:        sender,
		notifications: notifications,
		log:           log,
		config:        config,
	}
}

// Handle обрабатывает событие. Совместим с shared.EventHandler.
func (h *OnProgressMilestoneHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	switch e := event.(type) {
	case shared.ConceptCompletedEvent:
		if !h.config.NotifyConceptCompleted {
			return nil
		}
		return h.notify(ctx, e.UserID, notification.TypeConceptCompleted,
			"Concept completed",
			"You completed every topic in this concept. Well done!",
			map[string]string{
				"course_id":  e.CourseID,
				"concept_id": e.ConceptID,
			})
	case shared.CourseCompletedEvent:
		if !h.config.NotifyCourseCompleted {
			return nil
		}
		return h.notify(ctx, e.UserID, notification.TypeCourseCompleted,
			"Course completed",
			"You reached 100% on the whole course. Congratulations!",
			map[string]string{
				"course_id": e.CourseID,
			})
	default:
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())))
		return nil
	}
}

// notify строит, отправляет и сохраняет уведомление.
func (h *OnProgressMilestoneHandler) notify(
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
		h.log.Warn("milestone notification send failed",
			logger.UserID(userID),
			logger.String("type", string(t)),
			logger.Err(err))
		return nil
	}
	if err := h.notifications.Save(ctx, notice); err != nil {
		h.log.Warn("milestone notification save failed", logger.Err(err))
	}
	return nil
}
