// Package achievement содержит определения достижений, пользовательские
// проекции и вычислитель критериев разблокировки.
package achievement

import (
	"sort"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA (типизированные критерии вместо свободных документов)
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaType - тип счётчика, по которому оценивается достижение.
// Явный enum: произвольные строковые типы из хранилища отвергаются
// при загрузке определений.
type CriteriaType string

const (
	CriteriaProblemsSolved    CriteriaType = "problems_solved"
	CriteriaTopicsCompleted   CriteriaType = "topics_completed"
	CriteriaConceptsCompleted CriteriaType = "concepts_completed"
	CriteriaCoursesCompleted  CriteriaType = "courses_completed"
	CriteriaStreakDays        CriteriaType = "streak_days"
	CriteriaQuizzesPassed     CriteriaType = "quizzes_passed"
	CriteriaMockTestsPassed   CriteriaType = "mock_tests_passed"
	CriteriaTimeSpentHours    CriteriaType = "time_spent_hours"
)

// IsValid проверяет, что тип критерия известен.
func (t CriteriaType) IsValid() bool {
	switch t {
	case CriteriaProblemsSolved, CriteriaTopicsCompleted, CriteriaConceptsCompleted,
		CriteriaCoursesCompleted, CriteriaStreakDays, CriteriaQuizzesPassed,
		CriteriaMockTestsPassed, CriteriaTimeSpentHours:
		return true
	}
	return false
}

// Timeframe - окно, в котором накапливается счётчик критерия.
// Вычислитель пока работает только с all-time счётчиками: определения
// с оконным таймфреймом не проходят Validate.
type Timeframe string

const (
	TimeframeAllTime Timeframe = "all_time"
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// IsValid проверяет, что окно известно.
func (t Timeframe) IsValid() bool {
	switch t {
	case TimeframeAllTime, TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		return true
	}
	return false
}

// Operator - оператор сравнения в условии.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

// IsValid проверяет, что оператор известен.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn:
		return true
	}
	return false
}

// ValueKind - тип значения в условии. Вместо значения произвольного
// типа используется тегированный вариант.
type ValueKind string

const (
	ValueNumber ValueKind = "number"
	ValueString ValueKind = "string"
	ValueList   ValueKind = "list"
)

// ConditionValue - тегированное значение условия.
type ConditionValue struct {
	Kind   ValueKind `json:"kind"`
	Number float64   `json:"number,omitempty"`
	Str    string    `json:"str,omitempty"`
	List   []string  `json:"list,omitempty"`
}

// NumberValue создаёт числовое значение.
func NumberValue(n float64) ConditionValue {
	return ConditionValue{Kind: ValueNumber, Number: n}
}

// StringValue создаёт строковое значение.
func StringValue(s string) ConditionValue {
	return ConditionValue{Kind: ValueString, Str: s}
}

// ListValue создаёт значение-список для оператора in.
func ListValue(items ...string) ConditionValue {
	return ConditionValue{Kind: ValueList, List: items}
}

// Condition - дополнительный фильтр применимости достижения.
// Все условия объединяются логическим И и проверяются до сравнения
// прогресса с целью.
type Condition struct {
	// Field - имя поля снапшота (например, "course_level").
	Field string `json:"field"`

	// Operator - оператор сравнения.
	Operator Operator `json:"operator"`

	// Value - значение для сравнения.
	Value ConditionValue `json:"value"`
}

// Validate проверяет корректность условия.
func (c Condition) Validate() error {
	if c.Field == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrEmptyValue,
			"condition field cannot be empty")
	}
	if !c.Operator.IsValid() {
		return shared.NewDomainError("achievement", "Validate", shared.ErrInvalidEntity,
			"unknown condition operator: "+string(c.Operator))
	}
	if c.Operator == OpIn && c.Value.Kind != ValueList {
		return shared.NewDomainError("achievement", "Validate", shared.ErrInvalidEntity,
			"operator in requires a list value")
	}
	return nil
}

// Criteria - критерий разблокировки достижения.
type Criteria struct {
	// Type - тип счётчика.
	Type CriteriaType `json:"type"`

	// Target - целевое значение для непрогрессивных достижений.
	Target int `json:"target"`

	// Timeframe - окно накопления счётчика.
	Timeframe Timeframe `json:"timeframe"`

	// Conditions - дополнительные фильтры (логическое И).
	Conditions []Condition `json:"conditions,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT DEFINITION (неизменяемые справочные данные)
// ══════════════════════════════════════════════════════════════════════════════

// Rarity - редкость достижения.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Reward - награда за достижение или за его шаг.
type Reward struct {
	// XP - начисляемый опыт.
	XP int `json:"xp"`

	// Badge - идентификатор бейджа (пусто, если бейдж не выдаётся).
	Badge string `json:"badge,omitempty"`
}

// ProgressStep - один шаг прогрессивного достижения.
type ProgressStep struct {
	// Step - порядковый номер шага, начиная с 1, без пропусков.
	Step int `json:"step"`

	// Target - целевое значение счётчика для этого шага.
	Target int `json:"target"`

	// Reward - награда за шаг.
	Reward Reward `json:"reward"`
}

// Achievement - неизменяемое определение достижения.
// Определения общие для всех учащихся; мутируется только
// пользовательская проекция UserAchievement.
type Achievement struct {
	// ID - идентификатор достижения.
	ID string `json:"id"`

	// Title - название.
	Title string `json:"title"`

	// Description - описание для UI.
	Description string `json:"description"`

	// Category - категория (learning, consistency, assessment...).
	Category string `json:"category"`

	// Rarity - редкость.
	Rarity Rarity `json:"rarity"`

	// Secret - скрытое достижение: не показывается до разблокировки.
	Secret bool `json:"secret"`

	// Criteria - критерий разблокировки.
	Criteria Criteria `json:"criteria"`

	// Reward - награда верхнего уровня (для непрогрессивных).
	Reward Reward `json:"reward"`

	// ProgressSteps - упорядоченные шаги прогрессивного достижения.
	// Пустой список означает непрогрессивное достижение.
	ProgressSteps []ProgressStep `json:"progress_steps,omitempty"`
}

// IsProgressive сообщает, является ли достижение многошаговым.
func (a *Achievement) IsProgressive() bool {
	return len(a.ProgressSteps) > 0
}

// FinalStep возвращает последний шаг прогрессивного достижения.
func (a *Achievement) FinalStep() ProgressStep {
	return a.ProgressSteps[len(a.ProgressSteps)-1]
}

// Validate проверяет инварианты определения. Вызывается при загрузке
// справочника, а не при каждой оценке: некорректное определение не
// должно попасть в вычислитель вовсе.
//
// Инварианты шагов: номера начинаются с 1 и идут без пропусков,
// целевые значения строго возрастают.
func (a *Achievement) Validate() error {
	if a.ID == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrInvalidID,
			"achievement id cannot be empty")
	}
	if !a.Criteria.Type.IsValid() {
		return shared.WrapError("achievement", "Validate", shared.ErrInvalidEntity,
			"unknown criteria type: "+string(a.Criteria.Type), shared.ErrInvalidCriteria)
	}
	if a.Criteria.Timeframe != "" && !a.Criteria.Timeframe.IsValid() {
		return shared.WrapError("achievement", "Validate", shared.ErrInvalidEntity,
			"unknown timeframe: "+string(a.Criteria.Timeframe), shared.ErrInvalidCriteria)
	}
	// Счётчики снапшота накапливаются за всё время; определение с
	// оконным таймфреймом было бы молча оценено против all-time
	// счётчиков, поэтому отклоняется при загрузке.
	if a.Criteria.Timeframe != "" && a.Criteria.Timeframe != TimeframeAllTime {
		return shared.WrapError("achievement", "Validate", shared.ErrInvalidEntity,
			"windowed timeframe not supported: "+string(a.Criteria.Timeframe), shared.ErrInvalidCriteria)
	}
	for _, cond := range a.Criteria.Conditions {
		if err := cond.Validate(); err != nil {
			return err
		}
	}

	if !a.IsProgressive() {
		if a.Criteria.Target <= 0 {
			return shared.WrapError("achievement", "Validate", shared.ErrInvalidEntity,
				"non-progressive achievement requires a positive target", shared.ErrInvalidCriteria)
		}
		return nil
	}

	steps := a.ProgressSteps
	if !sort.SliceIsSorted(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step }) {
		return shared.ErrStepsNotAscending
	}
	prevTarget := 0
	for i, step := range steps {
		if step.Step != i+1 {
			return shared.ErrStepsNotAscending
		}
		if step.Target <= prevTarget {
			return shared.ErrStepsNotAscending
		}
		prevTarget = step.Target
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG (базовый справочник достижений платформы)
// ══════════════════════════════════════════════════════════════════════════════

// DefaultDefinitions возвращает встроенный справочник достижений.
// Хранилище может расширять его, но каждое определение проходит
// Validate при загрузке.
func DefaultDefinitions() []Achievement {
	return []Achievement{
		{
			ID:          "first-steps",
			Title:       "First Steps",
			Description: "Complete your first topic",
			Category:    "learning",
			Rarity:      RarityCommon,
			Criteria:    Criteria{Type: CriteriaTopicsCompleted, Target: 1, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 50},
		},
		{
			ID:          "concept-crusher",
			Title:       "Concept Crusher",
			Description: "Complete 10 concepts",
			Category:    "learning",
			Rarity:      RarityUncommon,
			Criteria:    Criteria{Type: CriteriaConceptsCompleted, Target: 10, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 300, Badge: "concept-crusher"},
		},
		{
			ID:          "course-finisher",
			Title:       "Course Finisher",
			Description: "Complete your first course",
			Category:    "learning",
			Rarity:      RarityRare,
			Criteria:    Criteria{Type: CriteriaCoursesCompleted, Target: 1, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 500, Badge: "finisher"},
		},
		{
			ID:          "week-of-fire",
			Title:       "Week of Fire",
			Description: "Stay active 7 days in a row",
			Category:    "consistency",
			Rarity:      RarityUncommon,
			Criteria:    Criteria{Type: CriteriaStreakDays, Target: 7, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 100},
		},
		{
			ID:          "iron-will",
			Title:       "Iron Will",
			Description: "Stay active 30 days in a row",
			Category:    "consistency",
			Rarity:      RarityEpic,
			Criteria:    Criteria{Type: CriteriaStreakDays, Target: 30, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 500, Badge: "iron-will"},
		},
		{
			ID:          "problem-solving-master",
			Title:       "Problem Solving Master",
			Description: "Solve coding problems across milestone steps",
			Category:    "learning",
			Rarity:      RarityLegendary,
			Criteria:    Criteria{Type: CriteriaProblemsSolved, Timeframe: TimeframeAllTime},
			ProgressSteps: []ProgressStep{
				{Step: 1, Target: 10, Reward: Reward{XP: 50, Badge: "solver-bronze"}},
				{Step: 2, Target: 50, Reward: Reward{XP: 200, Badge: "solver-silver"}},
				{Step: 3, Target: 150, Reward: Reward{XP: 500, Badge: "solver-gold"}},
				{Step: 4, Target: 500, Reward: Reward{XP: 1000, Badge: "solver-master"}},
			},
		},
		{
			ID:          "quiz-champion",
			Title:       "Quiz Champion",
			Description: "Pass 25 quizzes",
			Category:    "assessment",
			Rarity:      RarityRare,
			Criteria:    Criteria{Type: CriteriaQuizzesPassed, Target: 25, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 400, Badge: "quiz-champion"},
		},
		{
			ID:          "interview-ready",
			Title:       "Interview Ready",
			Description: "Pass 5 mock tests on advanced courses",
			Category:    "assessment",
			Rarity:      RarityEpic,
			Secret:      true,
			Criteria: Criteria{
				Type:      CriteriaMockTestsPassed,
				Target:    5,
				Timeframe: TimeframeAllTime,
				Conditions: []Condition{
					{Field: "course_level", Operator: OpIn, Value: ListValue("intermediate", "advanced")},
				},
			},
			Reward: Reward{XP: 750, Badge: "interview-ready"},
		},
		{
			ID:          "deep-diver",
			Title:       "Deep Diver",
			Description: "Spend 100 hours learning",
			Category:    "consistency",
			Rarity:      RarityRare,
			Criteria:    Criteria{Type: CriteriaTimeSpentHours, Target: 100, Timeframe: TimeframeAllTime},
			Reward:      Reward{XP: 600},
		},
	}
}

// LoadDefinitions валидирует набор определений и возвращает только
// корректные. Некорректные определения отбрасываются с ошибкой
// первого нарушения, чтобы справочник нельзя было загрузить частично
// сломанным.
func LoadDefinitions(defs []Achievement) ([]Achievement, error) {
	seen := make(map[string]struct{}, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[defs[i].ID]; dup {
			return nil, shared.NewDomainError("achievement", "Load", shared.ErrAlreadyExists,
				"duplicate achievement id: "+defs[i].ID)
		}
		seen[defs[i].ID] = struct{}{}
	}
	return defs, nil
}

// unlockedAtPtr - вспомогательная функция для проекций.
func unlockedAtPtr(t time.Time) *time.Time {
	return &t
}
