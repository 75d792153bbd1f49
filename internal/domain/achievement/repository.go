package achievement

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// DefinitionRepository - источник определений достижений.
// Определения проходят Validate при загрузке (LoadDefinitions).
type DefinitionRepository interface {
	// ListDefinitions возвращает все активные определения.
	ListDefinitions(ctx context.Context) ([]Achievement, error)

	// GetDefinition возвращает определение по идентификатору.
	// Возвращает shared.ErrAchievementNotFound, если не найдено.
	GetDefinition(ctx context.Context, id string) (*Achievement, error)
}

// UserRepository - хранилище пользовательских проекций с
// оптимистической блокировкой.
type UserRepository interface {
	// Load загружает проекцию для пары (user, achievement).
	// Возвращает shared.ErrUserAchievementNotFound, если записи нет.
	Load(ctx context.Context, userID shared.UserID, achievementID string) (*UserAchievement, error)

	// LoadAll загружает все проекции учащегося в карту по achievementId.
	LoadAll(ctx context.Context, userID shared.UserID) (map[string]*UserAchievement, error)

	// Save сохраняет проекцию, проверяя ожидаемую версию.
	// Несовпадение версий - shared.ErrVersionConflict, вызывающий
	// перечитывает и повторяет цикл оценки.
	Save(ctx context.Context, ua *UserAchievement, expectedVersion int64) error
}

// StatsProvider - источник накопленных счётчиков пользователя,
// из которых собирается StatSnapshot.
type StatsProvider interface {
	// Snapshot собирает счётчики, затронутые применённым событием.
	Snapshot(ctx context.Context, userID shared.UserID) (StatSnapshot, error)
}
