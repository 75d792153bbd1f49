package progress

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY SCORER (чистая функция, никогда не кэшируется между записями)
// ══════════════════════════════════════════════════════════════════════════════

// MasteryLabel - качественная метка уровня освоения концепта.
type MasteryLabel string

const (
	MasteryStarted    MasteryLabel = "Started"     // [0, 40)
	MasteryInProgress MasteryLabel = "In Progress" // [40, 60)
	MasteryCompleted  MasteryLabel = "Completed"   // [60, 80)
	MasteryMastered   MasteryLabel = "Mastered"    // [80, 100]
)

// Color возвращает цвет метки для UI-потребителей.
func (l MasteryLabel) Color() string {
	switch l {
	case MasteryStarted:
		return "orange"
	case MasteryInProgress:
		return "yellow"
	case MasteryCompleted:
		return "blue"
	case MasteryMastered:
		return "green"
	}
	return ""
}

// Базовые веса компонентов mastery-оценки. Если компонент не имеет
// данных, он исключается, а оставшиеся веса ренормализуются.
const (
	weightCompletion = 0.40
	weightQuiz       = 0.30
	weightProblems   = 0.30
)

// QuizHistory - сводка по квизам концепта из внешнего провайдера.
type QuizHistory struct {
	// AttemptCount - число завершённых попыток.
	AttemptCount int

	// AverageScore - средний балл по попыткам, 0-100.
	AverageScore float64
}

// HasData сообщает, есть ли данные для квиз-компонента.
func (h QuizHistory) HasData() bool {
	return h.AttemptCount > 0
}

// ProblemHistory - сводка по задачам концепта.
type ProblemHistory struct {
	// TotalProblems - всего задач в концепте.
	TotalProblems int

	// SolvedProblems - решено задач.
	SolvedProblems int
}

// HasData сообщает, есть ли данные для задачного компонента.
func (h ProblemHistory) HasData() bool {
	return h.TotalProblems > 0
}

// SolveRatio возвращает долю решённых задач, 0-1.
func (h ProblemHistory) SolveRatio() float64 {
	if h.TotalProblems == 0 {
		return 0
	}
	ratio := float64(h.SolvedProblems) / float64(h.TotalProblems)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Mastery - результат расчёта: оценка 0-100 и метка.
type Mastery struct {
	Score float64      `json:"score"`
	Label MasteryLabel `json:"label"`
}

// ComputeMastery считает mastery-оценку концепта как взвешенную смесь:
// 40% доля завершённых топиков, 30% средний балл квизов, 30% доля
// решённых задач. Компоненты без данных исключаются, веса оставшихся
// ренормализуются. Функция чистая: пересчитывается на каждое чтение,
// так как входы меняются независимо друг от друга.
func ComputeMastery(conceptProgress float64, quizzes QuizHistory, problems ProblemHistory) Mastery {
	type component struct {
		weight float64
		value  float64 // 0-100
	}

	components := []component{
		{weight: weightCompletion, value: clampScore(conceptProgress)},
	}
	if quizzes.HasData() {
		components = append(components, component{weight: weightQuiz, value: clampScore(quizzes.AverageScore)})
	}
	if problems.HasData() {
		components = append(components, component{weight: weightProblems, value: problems.SolveRatio() * 100})
	}

	totalWeight := 0.0
	for _, c := range components {
		totalWeight += c.weight
	}

	score := 0.0
	for _, c := range components {
		score += c.value * (c.weight / totalWeight)
	}

	return Mastery{
		Score: score,
		Label: LabelForScore(score),
	}
}

// LabelForScore возвращает метку по таблице диапазонов.
func LabelForScore(score float64) MasteryLabel {
	switch {
	case score >= 80:
		return MasteryMastered
	case score >= 60:
		return MasteryCompleted
	case score >= 40:
		return MasteryInProgress
	default:
		return MasteryStarted
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
