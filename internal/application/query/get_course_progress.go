// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE PROGRESS QUERY
// Возвращает прогресс пользователя по курсу вместе с уровнем владения
// каждым концептом. Оценка владения никогда не хранится: она
// пересчитывается при каждом чтении из прогресса, квизов и задач.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseProgressQuery содержит параметры запроса.
type GetCourseProgressQuery struct {
	// UserID - ID пользователя.
	UserID string

	// CourseID - ID курса.
	CourseID string
}

// Validate проверяет корректность параметров.
func (q *GetCourseProgressQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetCourseProgress", shared.ErrInvalidID,
			"user id is required")
	}
	if q.CourseID == "" {
		return shared.NewDomainError("query", "GetCourseProgress", shared.ErrInvalidID,
			"course id is required")
	}
	return nil
}

// ConceptProgressDTO - прогресс и владение одним концептом.
type ConceptProgressDTO struct {
	// ConceptID - ID концепта.
	ConceptID string `json:"concept_id"`

	// Title - название концепта из структуры курса.
	Title string `json:"title"`

	// Progress - процент завершённых топиков (0-100).
	Progress float64 `json:"progress"`

	// Completed - завершены ли все топики концепта.
	Completed bool `json:"completed"`

	// CompletedTopics / TotalTopics - счётчики топиков.
	CompletedTopics int `json:"completed_topics"`
	TotalTopics     int `json:"total_topics"`

	// TimeSpentSeconds - суммарное время по топикам концепта.
	TimeSpentSeconds int `json:"time_spent_seconds"`

	// MasteryScore - оценка владения (0-100), пересчитанная сейчас.
	MasteryScore float64 `json:"mastery_score"`

	// MasteryLabel - метка владения: Started, In Progress, Completed, Mastered.
	MasteryLabel string `json:"mastery_label"`

	// MasteryColor - цвет метки для UI.
	MasteryColor string `json:"mastery_color"`
}

// GetCourseProgressResult содержит результат запроса.
type GetCourseProgressResult struct {
	// UserID - ID пользователя.
	UserID string `json:"user_id"`

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// CourseTitle - название курса.
	CourseTitle string `json:"course_title"`

	// OverallProgress - общий прогресс курса (0-100).
	OverallProgress float64 `json:"overall_progress"`

	// Completed - завершён ли курс.
	Completed bool `json:"completed"`

	// TotalTimeSeconds - суммарное время по курсу.
	TotalTimeSeconds int `json:"total_time_seconds"`

	// Concepts - прогресс по концептам в порядке структуры курса.
	Concepts []ConceptProgressDTO `json:"concepts"`

	// StartedAt / LastAccessedAt - границы активности.
	StartedAt      time.Time `json:"started_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetCourseProgressHandler обрабатывает запрос прогресса по курсу.
type GetCourseProgressHandler struct {
	progressRepo progress.Repository
	structures   course.StructureProvider
	history      progress.HistoryProvider
}

// NewGetCourseProgressHandler создаёт новый обработчик.
func NewGetCourseProgressHandler(
	progressRepo progress.Repository,
	structures course.StructureProvider,
	history progress.HistoryProvider,
) *GetCourseProgressHandler {
	return &GetCourseProgressHandler{
		progressRepo: progressRepo,
		structures:   structures,
		history:      history,
	}
}

// Handle выполняет запрос. Концепты без активности присутствуют в
// ответе с нулевым прогрессом: клиенту всегда возвращается полная
// структура курса.
func (h *GetCourseProgressHandler) Handle(ctx context.Context, query GetCourseProgressQuery) (*GetCourseProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID := shared.UserID(query.UserID)
	courseID := shared.CourseID(query.CourseID)

	structure, err := h.structures.GetStructure(ctx, courseID)
	if err != nil {
		return nil, err
	}

	doc, err := h.progressRepo.Load(ctx, userID, courseID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		doc = progress.NewCourseProgress(userID, courseID)
	}

	result := &GetCourseProgressResult{
		UserID:           query.UserID,
		CourseID:         query.CourseID,
		CourseTitle:      structure.Title,
		OverallProgress:  doc.OverallProgress,
		Completed:        doc.Completed,
		TotalTimeSeconds: doc.TotalTimeSeconds,
		StartedAt:        doc.StartedAt,
		LastAccessedAt:   doc.LastAccessedAt,
		GeneratedAt:      time.Now(),
	}

	for _, concept := range structure.Concepts {
		dto := ConceptProgressDTO{
			ConceptID:   concept.ID.String(),
			Title:       concept.Title,
			TotalTopics: concept.TopicCount(),
		}

		var conceptProgress float64
		if cp := doc.FindConcept(concept.ID); cp != nil {
			conceptProgress = cp.Progress
			dto.Progress = cp.Progress
			dto.Completed = cp.Completed
			dto.CompletedTopics = cp.CompletedTopicCount()
			dto.TimeSpentSeconds = cp.TotalTimeSeconds()
		}

		mastery, err := h.computeMastery(ctx, userID, concept.ID, conceptProgress)
		if err != nil {
			return nil, err
		}
		dto.MasteryScore = mastery.Score
		dto.MasteryLabel = string(mastery.Label)
		dto.MasteryColor = mastery.Label.Color()

		result.Concepts = append(result.Concepts, dto)
	}
	return result, nil
}

// computeMastery собирает компоненты владения и смешивает их.
func (h *GetCourseProgressHandler) computeMastery(
	ctx context.Context,
	userID shared.UserID,
	conceptID shared.ConceptID,
	conceptProgress float64,
) (progress.Mastery, error) {
	quizzes, err := h.history.QuizHistory(ctx, userID, conceptID)
	if err != nil {
		return progress.Mastery{}, err
	}
	problems, err := h.history.ProblemHistory(ctx, userID, conceptID)
	if err != nil {
		return progress.Mastery{}, err
	}
	return progress.ComputeMastery(conceptProgress, quizzes, problems), nil
}
