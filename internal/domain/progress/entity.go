package progress

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS AGGREGATE (документ на пару user + course)
// ══════════════════════════════════════════════════════════════════════════════

// TopicProgress - прогресс по одному топику.
// Принадлежит ровно одному ConceptProgress; никогда не удаляется.
type TopicProgress struct {
	// TopicID - идентификатор топика.
	TopicID shared.TopicID `json:"topic_id"`

	// Completed - завершён ли топик. Монотонный флаг:
	// однажды выставленный в true, никогда не сбрасывается.
	Completed bool `json:"completed"`

	// TimeSpentSeconds - накопленное время. В отличие от Completed,
	// время накапливается при каждом событии, включая повторные.
	TimeSpentSeconds int `json:"time_spent_seconds"`

	// CompletedAt - когда топик был завершён впервые.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ConceptProgress - прогресс по концепту: набор TopicProgress плюс
// производный процент завершения.
type ConceptProgress struct {
	// ConceptID - идентификатор концепта.
	ConceptID shared.ConceptID `json:"concept_id"`

	// Topics - прогресс по топикам, затронутым хотя бы одним событием.
	Topics []TopicProgress `json:"topics"`

	// Progress - процент завершения: 100 × completedTopics / totalTopics,
	// где totalTopics берётся из структуры курса, а не из числа
	// затронутых топиков.
	Progress float64 `json:"progress"`

	// Completed - истинно тогда и только тогда, когда Progress >= 100.
	Completed bool `json:"completed"`

	// CompletedAt - когда концепт был завершён впервые.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// findTopic возвращает указатель на TopicProgress или nil.
func (cp *ConceptProgress) findTopic(topicID shared.TopicID) *TopicProgress {
	for i := range cp.Topics {
		if cp.Topics[i].TopicID == topicID {
			return &cp.Topics[i]
		}
	}
	return nil
}

// CompletedTopicCount возвращает число завершённых топиков.
func (cp *ConceptProgress) CompletedTopicCount() int {
	n := 0
	for _, t := range cp.Topics {
		if t.Completed {
			n++
		}
	}
	return n
}

// TotalTimeSeconds возвращает суммарное время по всем топикам концепта.
func (cp *ConceptProgress) TotalTimeSeconds() int {
	total := 0
	for _, t := range cp.Topics {
		total += t.TimeSpentSeconds
	}
	return total
}

// CourseProgress - агрегат прогресса учащегося по курсу.
// Один логический документ на пару (user, course); все мутации
// сериализуются через оптимистическую блокировку по Version.
type CourseProgress struct {
	// UserID - идентификатор учащегося.
	UserID shared.UserID `json:"user_id"`

	// CourseID - идентификатор курса.
	CourseID shared.CourseID `json:"course_id"`

	// Concepts - прогресс по концептам.
	Concepts []ConceptProgress `json:"concepts"`

	// OverallProgress - общий прогресс курса: средневзвешенное по
	// числу топиков, а не по числу концептов. Концепт с большим
	// числом топиков вносит пропорционально больший вклад.
	OverallProgress float64 `json:"overall_progress"`

	// Completed - истинно, когда OverallProgress достиг 100.
	Completed bool `json:"completed"`

	// TotalTimeSeconds - суммарное время по курсу.
	TotalTimeSeconds int `json:"total_time_seconds"`

	// LastAccessedAt - время последнего применённого события.
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// StartedAt - время первого события по курсу.
	StartedAt time.Time `json:"started_at"`

	// AppliedEvents - идентификаторы уже применённых событий
	// (ограниченное окно), для дедупликации повторной доставки.
	AppliedEvents []shared.EventID `json:"applied_events,omitempty"`

	// Version - версия документа для compare-and-swap.
	Version int64 `json:"version"`
}

// appliedEventsWindow ограничивает окно дедупликации. События старше
// окна всё равно безопасны для повторного применения благодаря
// монотонности флагов завершения.
const appliedEventsWindow = 64

// NewCourseProgress создаёт пустой агрегат прогресса.
func NewCourseProgress(userID shared.UserID, courseID shared.CourseID) *CourseProgress {
	now := time.Now()
	return &CourseProgress{
		UserID:         userID,
		CourseID:       courseID,
		Concepts:       make([]ConceptProgress, 0),
		StartedAt:      now,
		LastAccessedAt: now,
		Version:        0,
	}
}

// FindConcept возвращает прогресс по концепту или nil.
func (p *CourseProgress) FindConcept(conceptID shared.ConceptID) *ConceptProgress {
	for i := range p.Concepts {
		if p.Concepts[i].ConceptID == conceptID {
			return &p.Concepts[i]
		}
	}
	return nil
}

// HasApplied проверяет, было ли событие уже применено (в пределах окна).
func (p *CourseProgress) HasApplied(eventID shared.EventID) bool {
	for _, id := range p.AppliedEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// ChangeSet описывает, что изменило применение одного события.
// Используется вызывающим кодом для эмиссии доменных событий.
type ChangeSet struct {
	// TopicCompleted - топик перешёл в completed этим событием.
	TopicCompleted bool

	// ConceptCompleted - концепт перешёл в completed этим событием.
	ConceptCompleted bool

	// CourseCompleted - курс перешёл в completed этим событием.
	CourseCompleted bool

	// FirstActivity - это первое событие по курсу.
	FirstActivity bool

	// Duplicate - событие уже применялось и было отброшено по EventID.
	Duplicate bool
}

// Changed возвращает true, если применение события что-то изменило
// помимо накопления времени.
func (c ChangeSet) Changed() bool {
	return c.TopicCompleted || c.ConceptCompleted || c.CourseCompleted
}

// ApplyEvent применяет событие активности к агрегату и пересчитывает
// производные проценты снизу вверх. Событие должно быть предварительно
// провалидировано против структуры курса.
//
// Идемпотентность: повторное применение события с Completed=true не
// меняет флаги (они монотонны), но время накапливается при каждом
// применении. Дедупликация по EventID отсекает точные повторы доставки.
func (p *CourseProgress) ApplyEvent(event ActivityEvent, structure *course.Structure) (ChangeSet, error) {
	var changes ChangeSet

	if event.UserID != p.UserID || event.CourseID != p.CourseID {
		return changes, shared.NewDomainError("progress", "ApplyEvent", shared.ErrInvalidInput,
			"event does not belong to this progress document")
	}
	if event.EventID.IsValid() && p.HasApplied(event.EventID) {
		changes.Duplicate = true
		return changes, nil
	}

	concept, _, err := structure.Locate(event.ConceptID, event.TopicID)
	if err != nil {
		// Ingest обязан был проверить существование. Попадание сюда
		// означает рассинхронизацию данных, а не ошибку пользователя.
		return changes, shared.WrapError("progress", "ApplyEvent", shared.ErrNotFound,
			"event references unknown topic", err)
	}

	changes.FirstActivity = len(p.Concepts) == 0 && p.Version == 0

	cp := p.FindConcept(event.ConceptID)
	if cp == nil {
		p.Concepts = append(p.Concepts, ConceptProgress{
			ConceptID: event.ConceptID,
			Topics:    make([]TopicProgress, 0, 1),
		})
		cp = &p.Concepts[len(p.Concepts)-1]
	}

	tp := cp.findTopic(event.TopicID)
	if tp == nil {
		cp.Topics = append(cp.Topics, TopicProgress{TopicID: event.TopicID})
		tp = &cp.Topics[len(cp.Topics)-1]
	}

	tp.TimeSpentSeconds += event.TimeSpentSeconds
	if event.Completed && !tp.Completed {
		tp.Completed = true
		at := event.OccurredAt
		tp.CompletedAt = &at
		changes.TopicCompleted = true
	}

	wasConceptDone := cp.Completed
	recomputeConcept(cp, concept.TopicCount())
	if cp.Completed && !wasConceptDone {
		at := event.OccurredAt
		cp.CompletedAt = &at
		changes.ConceptCompleted = true
	}

	wasCourseDone := p.Completed
	p.recomputeOverall(structure)
	if p.Completed && !wasCourseDone {
		changes.CourseCompleted = true
	}

	p.TotalTimeSeconds += event.TimeSpentSeconds
	p.LastAccessedAt = event.OccurredAt
	p.rememberEvent(event.EventID)

	return changes, nil
}

// recomputeConcept пересчитывает процент концепта от общего числа
// топиков в структуре.
func recomputeConcept(cp *ConceptProgress, totalTopics int) {
	if totalTopics == 0 {
		cp.Progress = 0
		cp.Completed = false
		return
	}
	cp.Progress = 100 * float64(cp.CompletedTopicCount()) / float64(totalTopics)
	cp.Completed = cp.Progress >= 100
}

// recomputeOverall пересчитывает общий прогресс как средневзвешенное
// по числу топиков: sum(progress_i × topics_i) / sum(topics_i).
// Концепты без единого события входят в сумму с нулевым прогрессом.
func (p *CourseProgress) recomputeOverall(structure *course.Structure) {
	totalTopics := structure.TotalTopics()
	if totalTopics == 0 {
		p.OverallProgress = 0
		p.Completed = false
		return
	}

	weighted := 0.0
	for _, sc := range structure.Concepts {
		cp := p.FindConcept(sc.ID)
		if cp == nil {
			continue
		}
		weighted += cp.Progress * float64(sc.TopicCount())
	}

	p.OverallProgress = weighted / float64(totalTopics)
	if p.OverallProgress > 100 {
		p.OverallProgress = 100
	}
	p.Completed = p.OverallProgress >= 100
}

// rememberEvent добавляет событие в окно дедупликации.
func (p *CourseProgress) rememberEvent(eventID shared.EventID) {
	if !eventID.IsValid() {
		return
	}
	p.AppliedEvents = append(p.AppliedEvents, eventID)
	if len(p.AppliedEvents) > appliedEventsWindow {
		p.AppliedEvents = p.AppliedEvents[len(p.AppliedEvents)-appliedEventsWindow:]
	}
}

// CompletedConceptCount возвращает число завершённых концептов.
func (p *CourseProgress) CompletedConceptCount() int {
	n := 0
	for _, c := range p.Concepts {
		if c.Completed {
			n++
		}
	}
	return n
}

// Snapshot - неизменяемый срез прогресса после применения события.
// Возвращается наружу вместо указателя на живой агрегат.
type Snapshot struct {
	UserID            shared.UserID
	CourseID          shared.CourseID
	ConceptID         shared.ConceptID
	TopicID           shared.TopicID
	ConceptProgress   float64
	ConceptCompleted  bool
	OverallProgress   float64
	CourseCompleted   bool
	TotalTimeSeconds  int
	CompletedConcepts int
	Changes           ChangeSet
}

// BuildSnapshot собирает срез состояния после применения события.
func (p *CourseProgress) BuildSnapshot(event ActivityEvent, changes ChangeSet) Snapshot {
	snap := Snapshot{
		UserID:            p.UserID,
		CourseID:          p.CourseID,
		ConceptID:         event.ConceptID,
		TopicID:           event.TopicID,
		OverallProgress:   p.OverallProgress,
		CourseCompleted:   p.Completed,
		TotalTimeSeconds:  p.TotalTimeSeconds,
		CompletedConcepts: p.CompletedConceptCount(),
		Changes:           changes,
	}
	if cp := p.FindConcept(event.ConceptID); cp != nil {
		snap.ConceptProgress = cp.Progress
		snap.ConceptCompleted = cp.Completed
	}
	return snap
}
