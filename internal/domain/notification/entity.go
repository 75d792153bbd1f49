// Package notification содержит доменную модель уведомлений движка.
// Уведомления информируют о разблокированных достижениях, завершённых
// концептах и курсах и состоянии серии. Отправка строго fire-and-forget:
// сбой доставки никогда не откатывает мутацию прогресса.
package notification

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип уведомления.
type Type string

const (
	// TypeAchievementUnlocked - получено достижение.
	// "Новое достижение: Problem Solving Master, шаг 2!"
	TypeAchievementUnlocked Type = "achievement_unlocked"

	// TypeConceptCompleted - завершён концепт.
	// "Концепт Arrays & Hashing завершён!"
	TypeConceptCompleted Type = "concept_completed"

	// TypeCourseCompleted - завершён курс.
	// "Поздравляем! Курс DSA Fundamentals пройден целиком."
	TypeCourseCompleted Type = "course_completed"

	// TypeStreakMilestone - достигнут milestone серии.
	// "Серия 7 дней! Так держать!"
	TypeStreakMilestone Type = "streak_milestone"

	// TypeStreakAtRisk - серия оборвётся без активности сегодня.
	// "Не потеряй серию в 12 дней! Осталось 3 часа."
	TypeStreakAtRisk Type = "streak_at_risk"

	// TypeStreakBroken - серия прервана.
	// "Серия в 12 дней прервалась. Начни новую!"
	TypeStreakBroken Type = "streak_broken"

	// TypeMockTestGraded - оценена попытка мок-теста.
	// "Результат: 85/100, лучше 72% участников."
	TypeMockTestGraded Type = "mock_test_graded"
)

// IsValid проверяет, что тип уведомления известен.
func (t Type) IsValid() bool {
	switch t {
	case TypeAchievementUnlocked,
		TypeConceptCompleted,
		TypeCourseCompleted,
		TypeStreakMilestone,
		TypeStreakAtRisk,
		TypeStreakBroken,
		TypeMockTestGraded:
		return true
	default:
		return false
	}
}

// Priority - приоритет доставки.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// DefaultPriority возвращает приоритет по умолчанию для типа.
func (t Type) DefaultPriority() Priority {
	switch t {
	case TypeAchievementUnlocked, TypeCourseCompleted:
		return PriorityHigh
	case TypeStreakAtRisk:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification - одно уведомление для одного получателя.
type Notification struct {
	// ID - идентификатор уведомления.
	ID string

	// UserID - получатель.
	UserID shared.UserID

	// Type - тип уведомления.
	Type Type

	// Priority - приоритет доставки.
	Priority Priority

	// Title - заголовок.
	Title string

	// Body - текст уведомления.
	Body string

	// Payload - типизованные данные для клиента (achievement_id и т.п.).
	Payload map[string]string

	// CreatedAt - когда создано.
	CreatedAt time.Time
}

// New создаёт уведомление с приоритетом по умолчанию.
func New(userID shared.UserID, t Type, title, body string) (*Notification, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("notification", "New", shared.ErrInvalidID,
			"recipient cannot be empty")
	}
	if !t.IsValid() {
		return nil, shared.NewDomainError("notification", "New", shared.ErrInvalidEntity,
			"unknown notification type: "+string(t))
	}
	return &Notification{
		UserID:    userID,
		Type:      t,
		Priority:  t.DefaultPriority(),
		Title:     title,
		Body:      body,
		Payload:   make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// WithPayload добавляет поле в полезную нагрузку.
func (n *Notification) WithPayload(key, value string) *Notification {
	n.Payload[key] = value
	return n
}
