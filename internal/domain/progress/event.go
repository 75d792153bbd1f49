// Package progress содержит ядро движка: приём событий активности,
// агрегацию прогресса по уровням topic → concept → course, расчёт
// mastery-оценки и отслеживание серий дней активности.
package progress

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY EVENT (входное событие активности)
// ══════════════════════════════════════════════════════════════════════════════

// ActivityKind - тип активности учащегося.
type ActivityKind string

const (
	ActivityVideo   ActivityKind = "video"
	ActivityArticle ActivityKind = "article"
	ActivityCoding  ActivityKind = "coding"
	ActivityQuiz    ActivityKind = "quiz"
)

// IsValid проверяет, что тип активности известен движку.
func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityVideo, ActivityArticle, ActivityCoding, ActivityQuiz:
		return true
	}
	return false
}

// String возвращает строковое представление.
func (k ActivityKind) String() string {
	return string(k)
}

// ActivityEvent - неизменяемый факт активности учащегося.
// События append-only: однажды принятое событие не редактируется.
type ActivityEvent struct {
	// EventID - уникальный идентификатор события (для идемпотентности).
	EventID shared.EventID

	// UserID - идентификатор учащегося.
	UserID shared.UserID

	// CourseID - курс, к которому относится активность.
	CourseID shared.CourseID

	// ConceptID - концепт внутри курса.
	ConceptID shared.ConceptID

	// TopicID - конкретный топик.
	TopicID shared.TopicID

	// Kind - тип активности (video, article, coding, quiz).
	Kind ActivityKind

	// Completed - завершил ли учащийся топик этим событием.
	Completed bool

	// TimeSpentSeconds - затраченное время в секундах.
	TimeSpentSeconds int

	// OccurredAt - когда произошла активность.
	OccurredAt time.Time
}

// Validate выполняет структурную проверку события без обращения
// к внешним источникам. Проверка принадлежности топика дереву курса
// делается отдельно через ValidateAgainst.
func (e *ActivityEvent) Validate() error {
	if !e.UserID.IsValid() {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidID, "user id is required")
	}
	if !e.CourseID.IsValid() {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidID, "course id is required")
	}
	if !e.ConceptID.IsValid() {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidID, "concept id is required")
	}
	if !e.TopicID.IsValid() {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidID, "topic id is required")
	}
	if !e.Kind.IsValid() {
		return shared.ErrUnknownActivityKind
	}
	if e.TimeSpentSeconds < 0 {
		return shared.ErrNegativeTimeSpent
	}
	return nil
}

// ValidateAgainst проверяет, что тройка (course, concept, topic)
// существует в структурном дереве курса.
func (e *ActivityEvent) ValidateAgainst(structure *course.Structure) error {
	if structure.CourseID != e.CourseID {
		return shared.WrapError("progress", "ValidateAgainst", shared.ErrValidation,
			"structure does not match event course", shared.ErrCourseNotFound)
	}
	if _, _, err := structure.Locate(e.ConceptID, e.TopicID); err != nil {
		return shared.WrapError("progress", "ValidateAgainst", shared.ErrValidation,
			"topic not found in course structure", err)
	}
	return nil
}

// Normalize возвращает копию события с заполненными значениями
// по умолчанию: OccurredAt проставляется текущим временем, если пуст.
func (e ActivityEvent) Normalize(now time.Time) ActivityEvent {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	return e
}
