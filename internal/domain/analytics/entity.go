// Package analytics содержит дневные и периодические свёртки
// активности учащегося. Свёртки - производные данные: дневная
// запись обновляется инкрементально при каждом событии, недельные
// и месячные собираются фоновым заданием из дневных.
package analytics

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY ACTIVITY (дневная свёртка)
// ══════════════════════════════════════════════════════════════════════════════

// DailyActivity - агрегат активности за один календарный день
// в зоне пользователя. Ключ - пара (user, dateKey).
type DailyActivity struct {
	// UserID - идентификатор учащегося.
	UserID shared.UserID `json:"user_id"`

	// DateKey - день в формате YYYY-MM-DD в зоне пользователя.
	DateKey string `json:"date_key"`

	// TopicsCompleted - топиков завершено за день.
	TopicsCompleted int `json:"topics_completed"`

	// ProblemsSolved - задач решено за день.
	ProblemsSolved int `json:"problems_solved"`

	// QuizzesPassed - квизов сдано за день.
	QuizzesPassed int `json:"quizzes_passed"`

	// TimeSpentSeconds - затраченное время за день.
	TimeSpentSeconds int `json:"time_spent_seconds"`

	// XPEarned - опыт, начисленный за день (включая награды достижений).
	XPEarned int `json:"xp_earned"`

	// EventCount - число применённых событий.
	EventCount int `json:"event_count"`
}

// NewDailyActivity создаёт пустую дневную запись.
func NewDailyActivity(userID shared.UserID, at time.Time, loc *time.Location) *DailyActivity {
	return &DailyActivity{
		UserID:  userID,
		DateKey: timeutil.DateKey(at, loc),
	}
}

// ActivityDelta - вклад одного применённого события в дневную свёртку.
type ActivityDelta struct {
	TopicCompleted   bool
	ProblemSolved    bool
	QuizPassed       bool
	TimeSpentSeconds int
	XPEarned         int
}

// Apply добавляет вклад события к дневной записи.
func (d *DailyActivity) Apply(delta ActivityDelta) {
	d.EventCount++
	d.TimeSpentSeconds += delta.TimeSpentSeconds
	d.XPEarned += delta.XPEarned
	if delta.TopicCompleted {
		d.TopicsCompleted++
	}
	if delta.ProblemSolved {
		d.ProblemsSolved++
	}
	if delta.QuizPassed {
		d.QuizzesPassed++
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD ROLLUP (недельные и месячные свёртки)
// ══════════════════════════════════════════════════════════════════════════════

// Period - тип периода свёртки.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// PeriodRollup - свёртка активности за неделю или месяц.
// Собирается из дневных записей фоновым заданием, идемпотентно:
// повторная сборка того же периода замещает запись целиком.
type PeriodRollup struct {
	// UserID - идентификатор учащегося.
	UserID shared.UserID `json:"user_id"`

	// Period - тип периода.
	Period Period `json:"period"`

	// StartKey - первый день периода (YYYY-MM-DD).
	StartKey string `json:"start_key"`

	// ActiveDays - дней с хотя бы одним событием.
	ActiveDays int `json:"active_days"`

	// TopicsCompleted - топиков завершено за период.
	TopicsCompleted int `json:"topics_completed"`

	// ProblemsSolved - задач решено за период.
	ProblemsSolved int `json:"problems_solved"`

	// QuizzesPassed - квизов сдано за период.
	QuizzesPassed int `json:"quizzes_passed"`

	// TimeSpentSeconds - затраченное время за период.
	TimeSpentSeconds int `json:"time_spent_seconds"`

	// XPEarned - опыт за период.
	XPEarned int `json:"xp_earned"`

	// GeneratedAt - когда свёртка была собрана.
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildRollup собирает периодическую свёртку из дневных записей.
// Дни с нулевым числом событий не считаются активными.
func BuildRollup(userID shared.UserID, period Period, startKey string, days []*DailyActivity, at time.Time) *PeriodRollup {
	rollup := &PeriodRollup{
		UserID:      userID,
		Period:      period,
		StartKey:    startKey,
		GeneratedAt: at,
	}
	for _, day := range days {
		if day.EventCount == 0 {
			continue
		}
		rollup.ActiveDays++
		rollup.TopicsCompleted += day.TopicsCompleted
		rollup.ProblemsSolved += day.ProblemsSolved
		rollup.QuizzesPassed += day.QuizzesPassed
		rollup.TimeSpentSeconds += day.TimeSpentSeconds
		rollup.XPEarned += day.XPEarned
	}
	return rollup
}
