package achievement

import (
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR (вычислитель критериев разблокировки)
// ══════════════════════════════════════════════════════════════════════════════

// FieldValue - типизированное значение поля снапшота для условий.
type FieldValue struct {
	Kind   ValueKind
	Number float64
	Str    string
}

// NumberField создаёт числовое поле снапшота.
func NumberField(n float64) FieldValue {
	return FieldValue{Kind: ValueNumber, Number: n}
}

// StringField создаёт строковое поле снапшота.
func StringField(s string) FieldValue {
	return FieldValue{Kind: ValueString, Str: s}
}

// StatSnapshot - срез накопленных счётчиков пользователя после
// применения события. Вычислитель оценивает только те определения,
// чей тип критерия присутствует в Stats.
type StatSnapshot struct {
	// UserID - владелец снапшота.
	UserID shared.UserID

	// Stats - накопленные счётчики по типам критериев.
	Stats map[CriteriaType]int

	// Fields - поля контекста для условий (course_level и т.п.).
	Fields map[string]FieldValue

	// At - момент снапшота; проставляется в UnlockedAt.
	At time.Time
}

// HasStat проверяет наличие счётчика в снапшоте.
func (s StatSnapshot) HasStat(t CriteriaType) bool {
	_, ok := s.Stats[t]
	return ok
}

// Unlock - одно событие разблокировки: достижение целиком или его шаг.
type Unlock struct {
	// AchievementID - идентификатор определения.
	AchievementID string

	// Title - название (для уведомлений).
	Title string

	// Step - номер шага; 0 для непрогрессивных достижений.
	Step int

	// Reward - награда этого шага или достижения.
	Reward Reward

	// Completed - достижение завершено целиком этой разблокировкой.
	Completed bool
}

// Evaluator оценивает критерии достижений против снапшота статистики.
// Сам не ходит в хранилище: определения и проекции подаются снаружи,
// мутации проекций возвращаются вызывающему для сохранения.
type Evaluator struct {
	definitions []Achievement
}

// NewEvaluator создаёт вычислитель на валидированном справочнике.
func NewEvaluator(definitions []Achievement) *Evaluator {
	return &Evaluator{definitions: definitions}
}

// Definitions возвращает справочник вычислителя.
func (e *Evaluator) Definitions() []Achievement {
	return e.definitions
}

// Evaluate оценивает все определения, чей тип критерия присутствует
// в снапшоте. Проекции берутся из projections (ключ - achievementId)
// и создаются лениво при первом релевантном событии; мутированные
// проекции попадают в возвращаемую карту touched.
//
// Идемпотентность: уже завершённое достижение или уже засчитанный шаг
// никогда не эмитится повторно, даже при повторном вызове с тем же
// снапшотом после ретрая.
func (e *Evaluator) Evaluate(
	projections map[string]*UserAchievement,
	snapshot StatSnapshot,
) (unlocks []Unlock, touched map[string]*UserAchievement) {
	touched = make(map[string]*UserAchievement)

	for i := range e.definitions {
		def := &e.definitions[i]
		if !snapshot.HasStat(def.Criteria.Type) {
			continue
		}

		ua := projections[def.ID]
		if ua != nil && ua.IsCompleted() {
			continue
		}
		// Условия проверяются до сравнения прогресса: неподходящий
		// контекст делает достижение вовсе не применимым к событию.
		if !conditionsMatch(def.Criteria.Conditions, snapshot.Fields) {
			continue
		}

		if ua == nil {
			ua = NewUserAchievement(snapshot.UserID, def.ID)
			projections[def.ID] = ua
		}

		current := snapshot.Stats[def.Criteria.Type]
		beforeProgress := ua.CurrentProgress
		beforeStatus := ua.Status
		beforeSteps := len(ua.CompletedSteps)
		ua.updateProgress(current)

		var defUnlocks []Unlock
		if def.IsProgressive() {
			defUnlocks = e.evaluateProgressive(def, ua, current, snapshot.At)
		} else {
			defUnlocks = e.evaluateSimple(def, ua, current, snapshot.At)
		}

		changed := ua.CurrentProgress != beforeProgress ||
			ua.Status != beforeStatus ||
			len(ua.CompletedSteps) != beforeSteps
		if changed {
			touched[def.ID] = ua
		}
		unlocks = append(unlocks, defUnlocks...)
	}
	return unlocks, touched
}

// evaluateSimple оценивает непрогрессивное достижение.
func (e *Evaluator) evaluateSimple(def *Achievement, ua *UserAchievement, current int, at time.Time) []Unlock {
	if current < def.Criteria.Target {
		return nil
	}
	if !ua.complete(at) {
		return nil
	}
	return []Unlock{{
		AchievementID: def.ID,
		Title:         def.Title,
		Reward:        def.Reward,
		Completed:     true,
	}}
}

// evaluateProgressive оценивает шаги в порядке возрастания. Одно
// событие может пересечь несколько шагов сразу (например, массовый
// импорт решений): все новые шаги эмитятся по возрастанию в одном
// вызове.
func (e *Evaluator) evaluateProgressive(def *Achievement, ua *UserAchievement, current int, at time.Time) []Unlock {
	var unlocks []Unlock
	for _, step := range def.ProgressSteps {
		if ua.HasStep(step.Step) {
			continue
		}
		if current < step.Target {
			break
		}
		ua.markStep(step.Step)
		unlock := Unlock{
			AchievementID: def.ID,
			Title:         def.Title,
			Step:          step.Step,
			Reward:        step.Reward,
		}
		if step.Step == def.FinalStep().Step {
			ua.complete(at)
			unlock.Completed = true
		}
		unlocks = append(unlocks, unlock)
	}
	return unlocks
}

// conditionsMatch проверяет все условия (логическое И).
// Отсутствующее в снапшоте поле проваливает условие.
func conditionsMatch(conditions []Condition, fields map[string]FieldValue) bool {
	for _, cond := range conditions {
		field, ok := fields[cond.Field]
		if !ok {
			return false
		}
		if !cond.matches(field) {
			return false
		}
	}
	return true
}

// matches применяет оператор условия к значению поля.
func (c Condition) matches(field FieldValue) bool {
	switch c.Operator {
	case OpEq:
		return fieldEquals(field, c.Value)
	case OpNe:
		return !fieldEquals(field, c.Value)
	case OpGt:
		return field.Kind == ValueNumber && c.Value.Kind == ValueNumber && field.Number > c.Value.Number
	case OpGte:
		return field.Kind == ValueNumber && c.Value.Kind == ValueNumber && field.Number >= c.Value.Number
	case OpLt:
		return field.Kind == ValueNumber && c.Value.Kind == ValueNumber && field.Number < c.Value.Number
	case OpLte:
		return field.Kind == ValueNumber && c.Value.Kind == ValueNumber && field.Number <= c.Value.Number
	case OpIn:
		if c.Value.Kind != ValueList || field.Kind != ValueString {
			return false
		}
		for _, item := range c.Value.List {
			if item == field.Str {
				return true
			}
		}
		return false
	}
	return false
}

func fieldEquals(field FieldValue, value ConditionValue) bool {
	switch {
	case field.Kind == ValueNumber && value.Kind == ValueNumber:
		return field.Number == value.Number
	case field.Kind == ValueString && value.Kind == ValueString:
		return field.Str == value.Str
	}
	return false
}
