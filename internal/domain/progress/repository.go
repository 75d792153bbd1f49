package progress

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES (реализуются в infrastructure-слое)
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище документов прогресса с оптимистической
// блокировкой. Домен не знает о механизме хранения.
type Repository interface {
	// Load загружает документ прогресса для пары (user, course).
	// Возвращает shared.ErrProgressNotFound, если документа нет.
	Load(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*CourseProgress, error)

	// Save сохраняет документ, проверяя ожидаемую версию.
	// Если версия в хранилище не совпадает с expectedVersion,
	// возвращает shared.ErrVersionConflict; вызывающий обязан
	// перечитать документ и повторить весь цикл применения.
	Save(ctx context.Context, progress *CourseProgress, expectedVersion int64) error

	// ListByUser возвращает документы прогресса учащегося по всем курсам.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*CourseProgress, error)
}

// StreakRepository - хранилище состояний серий.
type StreakRepository interface {
	// Load загружает состояние серии учащегося.
	// Возвращает shared.ErrStreakNotFound, если записи нет.
	Load(ctx context.Context, userID shared.UserID) (*Streak, error)

	// Save сохраняет состояние с проверкой версии,
	// по тем же правилам, что Repository.Save.
	Save(ctx context.Context, streak *Streak, expectedVersion int64) error

	// ListAtRisk возвращает серии, которые оборвутся без активности
	// сегодня. Используется планировщиком напоминаний.
	ListAtRisk(ctx context.Context, limit int) ([]*Streak, error)
}

// HistoryProvider - read-only источник истории квизов и задач
// для mastery-расчёта. Реализуется поверх assessment-хранилища.
type HistoryProvider interface {
	// QuizHistory возвращает сводку попыток квизов по концепту.
	QuizHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (QuizHistory, error)

	// ProblemHistory возвращает сводку решённых задач по концепту.
	ProblemHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (ProblemHistory, error)
}
