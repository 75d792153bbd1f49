package query

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Возвращает каталог достижений вместе с прогрессом пользователя.
// Секретные достижения скрыты до разблокировки.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery содержит параметры запроса.
type GetAchievementsQuery struct {
	// UserID - ID пользователя.
	UserID string

	// Category - фильтр по категории (пустая = все).
	Category string

	// OnlyUnlocked - вернуть только завершённые достижения.
	OnlyUnlocked bool
}

// Validate проверяет корректность параметров.
func (q *GetAchievementsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetAchievements", shared.ErrInvalidID,
			"user id is required")
	}
	return nil
}

// AchievementStepDTO - одна ступень прогрессивного достижения.
type AchievementStepDTO struct {
	// Step - номер ступени (с 1).
	Step int `json:"step"`

	// Target - порог ступени.
	Target int `json:"target"`

	// XP и Badge - награда ступени.
	XP    int    `json:"xp"`
	Badge string `json:"badge,omitempty"`

	// Completed - пройдена ли ступень.
	Completed bool `json:"completed"`
}

// AchievementDTO - достижение с прогрессом пользователя.
type AchievementDTO struct {
	// ID, Title, Description, Category, Rarity - из каталога.
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Rarity      string `json:"rarity"`

	// Status - locked, in_progress, completed.
	Status string `json:"status"`

	// CurrentProgress / Target - движение к цели. Для прогрессивных
	// достижений Target - порог финальной ступени.
	CurrentProgress int `json:"current_progress"`
	Target          int `json:"target"`

	// Steps - ступени прогрессивного достижения.
	Steps []AchievementStepDTO `json:"steps,omitempty"`

	// XP и Badge - награда за завершение.
	XP    int    `json:"xp"`
	Badge string `json:"badge,omitempty"`

	// UnlockedAt - момент завершения.
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// GetAchievementsResult содержит результат запроса.
type GetAchievementsResult struct {
	// UserID - ID пользователя.
	UserID string `json:"user_id"`

	// Achievements - по порядку каталога.
	Achievements []AchievementDTO `json:"achievements"`

	// UnlockedCount / TotalCount - сводка (секретные не считаются в
	// TotalCount, пока не разблокированы).
	UnlockedCount int `json:"unlocked_count"`
	TotalCount    int `json:"total_count"`

	// TotalXP - суммарный XP за завершённые достижения и ступени.
	TotalXP int `json:"total_xp"`
}

// GetAchievementsHandler обрабатывает запрос достижений.
type GetAchievementsHandler struct {
	definitions achievement.DefinitionRepository
	userRepo    achievement.UserRepository
}

// NewGetAchievementsHandler создаёт новый обработчик.
func NewGetAchievementsHandler(
	definitions achievement.DefinitionRepository,
	userRepo achievement.UserRepository,
) *GetAchievementsHandler {
	return &GetAchievementsHandler{
		definitions: definitions,
		userRepo:    userRepo,
	}
}

// Handle выполняет запрос.
func (h *GetAchievementsHandler) Handle(ctx context.Context, query GetAchievementsQuery) (*GetAchievementsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	defs, err := h.definitions.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	projections, err := h.userRepo.LoadAll(ctx, shared.UserID(query.UserID))
	if err != nil {
		return nil, err
	}

	result := &GetAchievementsResult{UserID: query.UserID}

	for _, def := range defs {
		if query.Category != "" && def.Category != query.Category {
			continue
		}

		ua := projections[def.ID]
		unlocked := ua != nil && ua.IsCompleted()

		// Секретные достижения не попадают в выдачу и сводку, пока
		// не завершены.
		if def.Secret && !unlocked {
			continue
		}
		if query.OnlyUnlocked && !unlocked {
			continue
		}

		dto := buildAchievementDTO(def, ua)
		result.Achievements = append(result.Achievements, dto)
		result.TotalCount++
		if unlocked {
			result.UnlockedCount++
			result.TotalXP += def.Reward.XP
		}
		if ua != nil {
			for _, step := range def.ProgressSteps {
				if ua.HasStep(step.Step) {
					result.TotalXP += step.Reward.XP
				}
			}
		}
	}
	return result, nil
}

// buildAchievementDTO собирает DTO из определения и проекции.
func buildAchievementDTO(def achievement.Achievement, ua *achievement.UserAchievement) AchievementDTO {
	dto := AchievementDTO{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		Category:    def.Category,
		Rarity:      string(def.Rarity),
		Status:      string(achievement.StatusLocked),
		Target:      def.Criteria.Target,
		XP:          def.Reward.XP,
		Badge:       def.Reward.Badge,
	}
	if def.IsProgressive() {
		dto.Target = def.FinalStep().Target
	}
	if ua != nil {
		dto.Status = string(ua.Status)
		dto.CurrentProgress = ua.CurrentProgress
		dto.UnlockedAt = ua.UnlockedAt
	}
	for _, step := range def.ProgressSteps {
		dto.Steps = append(dto.Steps, AchievementStepDTO{
			Step:      step.Step,
			Target:    step.Target,
			XP:        step.Reward.XP,
			Badge:     step.Reward.Badge,
			Completed: ua != nil && ua.HasStep(step.Step),
		})
	}
	return dto
}
