package achievement

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT (пользовательская проекция)
// ══════════════════════════════════════════════════════════════════════════════

// Status - статус достижения у пользователя. Переходы монотонны:
// locked → in_progress → completed, обратных переходов нет.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// UserAchievement - прогресс пользователя по одному достижению.
// Создаётся лениво при первом релевантном событии.
type UserAchievement struct {
	// UserID - идентификатор учащегося.
	UserID shared.UserID `json:"user_id"`

	// AchievementID - идентификатор определения.
	AchievementID string `json:"achievement_id"`

	// CurrentProgress - текущее значение счётчика критерия.
	CurrentProgress int `json:"current_progress"`

	// Status - статус (монотонный).
	Status Status `json:"status"`

	// CompletedSteps - номера завершённых шагов (для прогрессивных).
	CompletedSteps []int `json:"completed_steps,omitempty"`

	// UnlockedAt - когда достижение завершено целиком.
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`

	// Version - версия документа для compare-and-swap.
	Version int64 `json:"version"`
}

// NewUserAchievement создаёт проекцию в статусе locked.
func NewUserAchievement(userID shared.UserID, achievementID string) *UserAchievement {
	return &UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		Status:        StatusLocked,
	}
}

// IsCompleted сообщает, завершено ли достижение.
func (ua *UserAchievement) IsCompleted() bool {
	return ua.Status == StatusCompleted
}

// HasStep проверяет, засчитан ли шаг.
func (ua *UserAchievement) HasStep(step int) bool {
	for _, s := range ua.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// markStep добавляет шаг в завершённые. Идемпотентно.
func (ua *UserAchievement) markStep(step int) {
	if ua.HasStep(step) {
		return
	}
	ua.CompletedSteps = append(ua.CompletedSteps, step)
}

// updateProgress обновляет счётчик и поднимает статус из locked.
// Статус completed не понижается даже при падении счётчика
// (например, при смене окна таймфрейма).
func (ua *UserAchievement) updateProgress(current int) {
	ua.CurrentProgress = current
	if ua.Status == StatusLocked && current > 0 {
		ua.Status = StatusInProgress
	}
}

// complete переводит достижение в completed. Идемпотентно.
func (ua *UserAchievement) complete(at time.Time) bool {
	if ua.Status == StatusCompleted {
		return false
	}
	ua.Status = StatusCompleted
	ua.UnlockedAt = unlockedAtPtr(at)
	return true
}
