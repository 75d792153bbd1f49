// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventTopicCompleted   EventType = "progress.topic_completed"
	EventConceptCompleted EventType = "progress.concept_completed"
	EventCourseCompleted  EventType = "progress.course_completed"
	EventProgressUpdated  EventType = "progress.updated"

	// Streak events
	EventStreakExtended EventType = "streak.extended"
	EventStreakBroken   EventType = "streak.broken"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventAchievementStep     EventType = "achievement.step_completed"

	// Assessment events
	EventAttemptGraded EventType = "assessment.attempt_graded"
	EventQuizPassed    EventType = "assessment.quiz_passed"

	// Learning path events
	EventPathStepCompleted EventType = "path.step_completed"
	EventPathCompleted     EventType = "path.completed"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventDailyRollupDone EventType = "system.daily_rollup_done"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// TopicCompletedEvent is emitted when a topic transitions to completed.
type TopicCompletedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id"`
	ConceptID string `json:"concept_id"`
	TopicID   string `json:"topic_id"`
	Kind      string `json:"kind"` // video, article, coding, quiz
}

// Payload implements Event interface.
func (e TopicCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"course_id":  e.CourseID,
		"concept_id": e.ConceptID,
		"topic_id":   e.TopicID,
		"kind":       e.Kind,
	}
}

// NewTopicCompletedEvent creates a new TopicCompletedEvent.
func NewTopicCompletedEvent(userID, courseID, conceptID, topicID, kind string) TopicCompletedEvent {
	return TopicCompletedEvent{
		BaseEvent: NewBaseEvent(EventTopicCompleted, userID),
		UserID:    userID,
		CourseID:  courseID,
		ConceptID: conceptID,
		TopicID:   topicID,
		Kind:      kind,
	}
}

// ConceptCompletedEvent is emitted when all topics of a concept complete.
type ConceptCompletedEvent struct {
	BaseEvent
	UserID       string  `json:"user_id"`
	CourseID     string  `json:"course_id"`
	ConceptID    string  `json:"concept_id"`
	MasteryScore float64 `json:"mastery_score"`
	MasteryLabel string  `json:"mastery_label"`
}

// Payload implements Event interface.
func (e ConceptCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"course_id":     e.CourseID,
		"concept_id":    e.ConceptID,
		"mastery_score": e.MasteryScore,
		"mastery_label": e.MasteryLabel,
	}
}

// NewConceptCompletedEvent creates a new ConceptCompletedEvent.
func NewConceptCompletedEvent(userID, courseID, conceptID string, score float64, label string) ConceptCompletedEvent {
	return ConceptCompletedEvent{
		BaseEvent:    NewBaseEvent(EventConceptCompleted, userID),
		UserID:       userID,
		CourseID:     courseID,
		ConceptID:    conceptID,
		MasteryScore: score,
		MasteryLabel: label,
	}
}

// CourseCompletedEvent is emitted when overall course progress reaches 100.
type CourseCompletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(userID, courseID string) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent: NewBaseEvent(EventCourseCompleted, userID),
		UserID:    userID,
		CourseID:  courseID,
	}
}

// ProgressUpdatedEvent is emitted for every successfully applied activity event.
type ProgressUpdatedEvent struct {
	BaseEvent
	UserID          string  `json:"user_id"`
	CourseID        string  `json:"course_id"`
	ConceptID       string  `json:"concept_id"`
	TopicID         string  `json:"topic_id"`
	OverallProgress float64 `json:"overall_progress"`
}

// Payload implements Event interface.
func (e ProgressUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"course_id":        e.CourseID,
		"concept_id":       e.ConceptID,
		"topic_id":         e.TopicID,
		"overall_progress": e.OverallProgress,
	}
}

// NewProgressUpdatedEvent creates a new ProgressUpdatedEvent.
func NewProgressUpdatedEvent(userID, courseID, conceptID, topicID string, overall float64) ProgressUpdatedEvent {
	return ProgressUpdatedEvent{
		BaseEvent:       NewBaseEvent(EventProgressUpdated, userID),
		UserID:          userID,
		CourseID:        courseID,
		ConceptID:       conceptID,
		TopicID:         topicID,
		OverallProgress: overall,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakExtendedEvent is emitted when a learner's streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, current, longest int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, userID),
		UserID:        userID,
		CurrentStreak: current,
		LongestStreak: longest,
	}
}

// StreakBrokenEvent is emitted when a gap in activity resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted once per unlocked achievement or
// progressive step. Step is 0 for non-progressive achievements.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	Step          int    `json:"step,omitempty"`
	XPAwarded     int    `json:"xp_awarded"`
	Badge         string `json:"badge,omitempty"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"step":           e.Step,
		"xp_awarded":     e.XPAwarded,
		"badge":          e.Badge,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, title string, step, xp int, badge string) AchievementUnlockedEvent {
	eventType := EventAchievementUnlocked
	if step > 0 {
		eventType = EventAchievementStep
	}
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(eventType, userID),
		UserID:        userID,
		AchievementID: achievementID,
		Title:         title,
		Step:          step,
		XPAwarded:     xp,
		Badge:         badge,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Assessment Events
// ═══════════════════════════════════════════════════════════════════════════

// AttemptGradedEvent is emitted when a mock-test attempt is graded.
type AttemptGradedEvent struct {
	BaseEvent
	UserID     string  `json:"user_id"`
	MockTestID string  `json:"mock_test_id"`
	AttemptNo  int     `json:"attempt_no"`
	TotalScore float64 `json:"total_score"`
	Passed     bool    `json:"passed"`
	Percentile float64 `json:"percentile"`
}

// Payload implements Event interface.
func (e AttemptGradedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"mock_test_id": e.MockTestID,
		"attempt_no":   e.AttemptNo,
		"total_score":  e.TotalScore,
		"passed":       e.Passed,
		"percentile":   e.Percentile,
	}
}

// NewAttemptGradedEvent creates a new AttemptGradedEvent.
func NewAttemptGradedEvent(userID, mockTestID string, attemptNo int, score float64, passed bool, percentile float64) AttemptGradedEvent {
	return AttemptGradedEvent{
		BaseEvent:  NewBaseEvent(EventAttemptGraded, userID),
		UserID:     userID,
		MockTestID: mockTestID,
		AttemptNo:  attemptNo,
		TotalScore: score,
		Passed:     passed,
		Percentile: percentile,
	}
}

// QuizPassedEvent is emitted when a course quiz attempt passes.
type QuizPassedEvent struct {
	BaseEvent
	UserID    string  `json:"user_id"`
	CourseID  string  `json:"course_id"`
	ConceptID string  `json:"concept_id"`
	QuizID    string  `json:"quiz_id"`
	ScorePct  float64 `json:"score_pct"`
}

// Payload implements Event interface.
func (e QuizPassedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"course_id":  e.CourseID,
		"concept_id": e.ConceptID,
		"quiz_id":    e.QuizID,
		"score_pct":  e.ScorePct,
	}
}

// NewQuizPassedEvent creates a new QuizPassedEvent.
func NewQuizPassedEvent(userID, courseID, conceptID, quizID string, score float64) QuizPassedEvent {
	return QuizPassedEvent{
		BaseEvent: NewBaseEvent(EventQuizPassed, userID),
		UserID:    userID,
		CourseID:  courseID,
		ConceptID: conceptID,
		QuizID:    quizID,
		ScorePct:  score,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Path Events
// ═══════════════════════════════════════════════════════════════════════════

// PathStepCompletedEvent is emitted when a learning-path step completes.
type PathStepCompletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	PathID   string `json:"path_id"`
	StepID   string `json:"step_id"`
	StepType string `json:"step_type"`
}

// Payload implements Event interface.
func (e PathStepCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"path_id":   e.PathID,
		"step_id":   e.StepID,
		"step_type": e.StepType,
	}
}

// NewPathStepCompletedEvent creates a new PathStepCompletedEvent.
func NewPathStepCompletedEvent(userID, pathID, stepID, stepType string) PathStepCompletedEvent {
	return PathStepCompletedEvent{
		BaseEvent: NewBaseEvent(EventPathStepCompleted, userID),
		UserID:    userID,
		PathID:    pathID,
		StepID:    stepID,
		StepType:  stepType,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
