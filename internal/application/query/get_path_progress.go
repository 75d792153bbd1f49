package query

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/learningpath"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PATH PROGRESS QUERY
// Возвращает производное состояние учебного пути. Путь не хранит
// собственного прогресса: статусы шагов выводятся из прогресса курсов
// и результатов пробных тестов при каждом чтении.
// ══════════════════════════════════════════════════════════════════════════════

// GetPathProgressQuery содержит параметры запроса.
type GetPathProgressQuery struct {
	// UserID - ID пользователя.
	UserID string

	// PathID - ID учебного пути.
	PathID string
}

// Validate проверяет корректность параметров.
func (q *GetPathProgressQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetPathProgress", shared.ErrInvalidID,
			"user id is required")
	}
	if q.PathID == "" {
		return shared.NewDomainError("query", "GetPathProgress", shared.ErrInvalidID,
			"path id is required")
	}
	return nil
}

// GetPathProgressResult содержит результат запроса.
type GetPathProgressResult struct {
	// UserID - ID пользователя.
	UserID string `json:"user_id"`

	// Title - название пути.
	Title string `json:"title"`

	// Progress - производное состояние пути и шагов.
	Progress learningpath.PathProgress `json:"progress"`
}

// GetPathProgressHandler обрабатывает запрос состояния пути.
type GetPathProgressHandler struct {
	paths        learningpath.Repository
	progressRepo progress.Repository
	attempts     assessment.AttemptRepository
}

// NewGetPathProgressHandler создаёт новый обработчик.
func NewGetPathProgressHandler(
	paths learningpath.Repository,
	progressRepo progress.Repository,
	attempts assessment.AttemptRepository,
) *GetPathProgressHandler {
	return &GetPathProgressHandler{
		paths:        paths,
		progressRepo: progressRepo,
		attempts:     attempts,
	}
}

// Handle выполняет запрос. Состояние ресурсов предзагружается одним
// проходом по шагам, после чего вывод статусов чисто вычислительный.
func (h *GetPathProgressHandler) Handle(ctx context.Context, query GetPathProgressQuery) (*GetPathProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	path, err := h.paths.GetPath(ctx, query.PathID)
	if err != nil {
		return nil, err
	}

	lookup, err := h.buildLookup(ctx, shared.UserID(query.UserID), path)
	if err != nil {
		return nil, err
	}

	return &GetPathProgressResult{
		UserID:   query.UserID,
		Title:    path.Title,
		Progress: learningpath.DeriveProgress(path, lookup),
	}, nil
}

// courseState - предзагруженное состояние одного курса.
type courseState struct {
	started   bool
	completed bool
}

// pathLookup - снимок состояния ресурсов пути для одного пользователя.
type pathLookup struct {
	courses     map[shared.CourseID]courseState
	passedTests map[string]bool
}

func (l pathLookup) CourseState(courseID shared.CourseID) (bool, bool) {
	state := l.courses[courseID]
	return state.started, state.completed
}

func (l pathLookup) MockTestPassed(mockTestID string) bool {
	return l.passedTests[mockTestID]
}

// buildLookup загружает состояние ресурсов, на которые ссылается путь.
func (h *GetPathProgressHandler) buildLookup(
	ctx context.Context,
	userID shared.UserID,
	path *learningpath.Path,
) (pathLookup, error) {
	lookup := pathLookup{
		courses:     make(map[shared.CourseID]courseState),
		passedTests: make(map[string]bool),
	}

	docs, err := h.progressRepo.ListByUser(ctx, userID)
	if err != nil {
		return lookup, err
	}
	for _, doc := range docs {
		lookup.courses[doc.CourseID] = courseState{
			started:   true,
			completed: doc.Completed,
		}
	}

	for _, step := range path.Steps {
		if step.Type != learningpath.StepMockTest {
			continue
		}
		if _, seen := lookup.passedTests[step.MockTestID]; seen {
			continue
		}
		attempts, err := h.attempts.ListAttempts(ctx, userID, step.MockTestID)
		if err != nil {
			return lookup, err
		}
		passed := false
		for _, attempt := range attempts {
			if attempt.Passed {
				passed = true
				break
			}
		}
		lookup.passedTests[step.MockTestID] = passed
	}
	return lookup, nil
}
