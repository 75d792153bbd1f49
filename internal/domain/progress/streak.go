package progress

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER (серии дней активности)
// ══════════════════════════════════════════════════════════════════════════════

// Streak - состояние серии дней активности учащегося.
// Мутируется не чаще одного раза за календарный день, идемпотентно.
type Streak struct {
	// UserID - идентификатор учащегося.
	UserID shared.UserID `json:"user_id"`

	// CurrentStreak - текущая серия подряд идущих дней с активностью.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActiveDate - последний день с активностью (полночь в зоне
	// пользователя). Сравнение дней выполняется в зоне пользователя,
	// а не наивно в UTC: сессия через полночь UTC, но не через
	// локальную полночь, не должна рвать серию.
	LastActiveDate time.Time `json:"last_active_date"`

	// Timezone - IANA-зона пользователя. Пустая строка означает UTC.
	Timezone shared.Timezone `json:"timezone"`

	// Version - версия документа для compare-and-swap.
	Version int64 `json:"version"`
}

// NewStreak создаёт пустое состояние серии.
func NewStreak(userID shared.UserID, tz shared.Timezone) *Streak {
	return &Streak{
		UserID:   userID,
		Timezone: tz,
	}
}

// SetTimezone меняет зону пользователя. Возвращает false, если зона
// не изменилась. Накопленные счётчики не пересчитываются: новая зона
// влияет только на границы будущих календарных дней.
func (s *Streak) SetTimezone(tz shared.Timezone) bool {
	if s.Timezone == tz {
		return false
	}
	s.Timezone = tz
	return true
}

// StreakChange описывает результат записи активности.
type StreakChange struct {
	// Extended - серия выросла этим событием.
	Extended bool

	// Broken - серия была сброшена из-за пропуска дней.
	Broken bool

	// DaysMissed - сколько дней было пропущено при сбросе.
	DaysMissed int

	// PreviousStreak - длина серии до сброса.
	PreviousStreak int
}

// RecordActivity записывает факт активности в момент activityAt.
// Правила:
//   - тот же календарный день, что и LastActiveDate - без изменений;
//   - ровно следующий день - серия растёт на 1;
//   - разрыв больше одного дня - серия сбрасывается в 1.
//
// LongestStreak обновляется как максимум. Дни сравниваются в зоне
// пользователя.
func (s *Streak) RecordActivity(activityAt time.Time) StreakChange {
	var change StreakChange

	loc := s.Timezone.Location()
	activityDay := timeutil.DateOnly(activityAt, loc)

	if s.LastActiveDate.IsZero() {
		s.CurrentStreak = 1
		s.LastActiveDate = activityDay
		if s.LongestStreak < 1 {
			s.LongestStreak = 1
		}
		change.Extended = true
		return change
	}

	daysDiff := timeutil.DaysBetween(s.LastActiveDate, activityAt, loc)

	switch {
	case daysDiff <= 0:
		// Тот же день (или событие из прошлого) - идемпотентно.
	case daysDiff == 1:
		s.CurrentStreak++
		s.LastActiveDate = activityDay
		change.Extended = true
	default:
		change.Broken = true
		change.DaysMissed = daysDiff - 1
		change.PreviousStreak = s.CurrentStreak
		s.CurrentStreak = 1
		s.LastActiveDate = activityDay
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	return change
}

// IsAtRisk сообщает, что серия оборвётся, если учащийся не проявит
// активность до конца текущего дня. Используется планировщиком
// напоминаний streak_at_risk.
func (s *Streak) IsAtRisk(now time.Time) bool {
	if s.CurrentStreak == 0 || s.LastActiveDate.IsZero() {
		return false
	}
	return timeutil.DaysBetween(s.LastActiveDate, now, s.Timezone.Location()) == 1
}

// IsBrokenAsOf сообщает, что серия уже фактически оборвана на момент
// now (прошло больше одного дня без активности), но документ ещё не
// обновлён следующим событием.
func (s *Streak) IsBrokenAsOf(now time.Time) bool {
	if s.CurrentStreak == 0 || s.LastActiveDate.IsZero() {
		return false
	}
	return timeutil.DaysBetween(s.LastActiveDate, now, s.Timezone.Location()) > 1
}
