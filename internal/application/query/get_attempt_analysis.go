package query

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTEMPT ANALYSIS QUERY
// Возвращает разбор попытки пробного теста: сильные и слабые темы,
// разбивку по сложности и историю попыток.
// ══════════════════════════════════════════════════════════════════════════════

// GetAttemptAnalysisQuery содержит параметры запроса.
type GetAttemptAnalysisQuery struct {
	// UserID - ID пользователя.
	UserID string

	// MockTestID - ID пробного теста.
	MockTestID string

	// AttemptNumber - номер попытки (0 = последняя).
	AttemptNumber int
}

// Validate проверяет корректность параметров.
func (q *GetAttemptAnalysisQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetAttemptAnalysis", shared.ErrInvalidID,
			"user id is required")
	}
	if q.MockTestID == "" {
		return shared.NewDomainError("query", "GetAttemptAnalysis", shared.ErrInvalidID,
			"mock test id is required")
	}
	if q.AttemptNumber < 0 {
		return shared.NewDomainError("query", "GetAttemptAnalysis", shared.ErrValidation,
			"attempt number cannot be negative")
	}
	return nil
}

// AttemptSummaryDTO - краткая строка истории попыток.
type AttemptSummaryDTO struct {
	// AttemptNumber - номер попытки.
	AttemptNumber int `json:"attempt_number"`

	// TotalScore - итоговый балл (0-100).
	TotalScore float64 `json:"total_score"`

	// Passed - пройден ли порог.
	Passed bool `json:"passed"`

	// Percentile - перцентиль на момент сдачи.
	Percentile float64 `json:"percentile"`
}

// GetAttemptAnalysisResult содержит результат запроса.
type GetAttemptAnalysisResult struct {
	// UserID - ID пользователя.
	UserID string `json:"user_id"`

	// TestTitle - название теста.
	TestTitle string `json:"test_title"`

	// Analysis - разбор выбранной попытки.
	Analysis assessment.AttemptAnalysis `json:"analysis"`

	// History - все попытки пользователя на этом тесте по порядку.
	History []AttemptSummaryDTO `json:"history"`
}

// GetAttemptAnalysisHandler обрабатывает запрос разбора попытки.
type GetAttemptAnalysisHandler struct {
	tests    assessment.TestRepository
	attempts assessment.AttemptRepository
}

// NewGetAttemptAnalysisHandler создаёт новый обработчик.
func NewGetAttemptAnalysisHandler(
	tests assessment.TestRepository,
	attempts assessment.AttemptRepository,
) *GetAttemptAnalysisHandler {
	return &GetAttemptAnalysisHandler{tests: tests, attempts: attempts}
}

// Handle выполняет запрос.
func (h *GetAttemptAnalysisHandler) Handle(ctx context.Context, query GetAttemptAnalysisQuery) (*GetAttemptAnalysisResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	test, err := h.tests.GetTest(ctx, query.MockTestID)
	if err != nil {
		return nil, err
	}

	attempts, err := h.attempts.ListAttempts(ctx, shared.UserID(query.UserID), query.MockTestID)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, shared.NewDomainError("assessment", "GetAttemptAnalysis", shared.ErrNotFound,
			"no attempts recorded for this test")
	}

	selected := attempts[len(attempts)-1]
	if query.AttemptNumber > 0 {
		selected = nil
		for _, attempt := range attempts {
			if attempt.AttemptNumber == query.AttemptNumber {
				selected = attempt
				break
			}
		}
		if selected == nil {
			return nil, shared.NewDomainError("assessment", "GetAttemptAnalysis", shared.ErrNotFound,
				"attempt number not found")
		}
	}

	result := &GetAttemptAnalysisResult{
		UserID:    query.UserID,
		TestTitle: test.Title,
		Analysis:  assessment.Analyze(test, selected),
	}
	for _, attempt := range attempts {
		result.History = append(result.History, AttemptSummaryDTO{
			AttemptNumber: attempt.AttemptNumber,
			TotalScore:    attempt.TotalScore,
			Passed:        attempt.Passed,
			Percentile:    attempt.Percentile,
		})
	}
	return result, nil
}
