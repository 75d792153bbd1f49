package query

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Возвращает серию ежедневной активности. Хранимое значение не
// изменяется при чтении: если серия фактически прервана, это видно
// через поле is_broken, а сброс произойдёт при следующем событии.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery содержит параметры запроса.
type GetStreakQuery struct {
	// UserID - ID пользователя.
	UserID string

	// Now - момент оценки (пустой = сейчас). Нужен тестам и джобам.
	Now time.Time
}

// Validate проверяет корректность параметров.
func (q *GetStreakQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetStreak", shared.ErrInvalidID,
			"user id is required")
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	return nil
}

// GetStreakResult содержит результат запроса.
type GetStreakResult struct {
	// UserID - ID пользователя.
	UserID string `json:"user_id"`

	// CurrentStreak - текущая серия в днях.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActiveDate - последний активный день.
	LastActiveDate time.Time `json:"last_active_date"`

	// Timezone - таймзона пользователя (IANA).
	Timezone string `json:"timezone"`

	// IsAtRisk - сегодня ещё не было активности, серия под угрозой.
	IsAtRisk bool `json:"is_at_risk"`

	// IsBroken - серия фактически прервана (сброс отложен до
	// следующего события).
	IsBroken bool `json:"is_broken"`
}

// GetStreakHandler обрабатывает запрос серии.
type GetStreakHandler struct {
	streakRepo progress.StreakRepository
}

// NewGetStreakHandler создаёт новый обработчик.
func NewGetStreakHandler(streakRepo progress.StreakRepository) *GetStreakHandler {
	return &GetStreakHandler{streakRepo: streakRepo}
}

// Handle выполняет запрос. Пользователь без единого события получает
// нулевую серию, а не ошибку.
func (h *GetStreakHandler) Handle(ctx context.Context, query GetStreakQuery) (*GetStreakResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	streak, err := h.streakRepo.Load(ctx, shared.UserID(query.UserID))
	if err != nil {
		if shared.IsNotFound(err) {
			return &GetStreakResult{UserID: query.UserID}, nil
		}
		return nil, err
	}

	return &GetStreakResult{
		UserID:         query.UserID,
		CurrentStreak:  streak.CurrentStreak,
		LongestStreak:  streak.LongestStreak,
		LastActiveDate: streak.LastActiveDate,
		Timezone:       string(streak.Timezone),
		IsAtRisk:       streak.IsAtRisk(query.Now),
		IsBroken:       streak.IsBrokenAsOf(query.Now),
	}, nil
}
