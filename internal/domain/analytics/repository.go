package analytics

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// Repository - хранилище дневных и периодических свёрток.
type Repository interface {
	// LoadDaily загружает дневную запись; возвращает shared.ErrNotFound,
	// если записи за этот день нет.
	LoadDaily(ctx context.Context, userID shared.UserID, dateKey string) (*DailyActivity, error)

	// SaveDaily сохраняет дневную запись (create or update).
	SaveDaily(ctx context.Context, daily *DailyActivity) error

	// ListDailyRange возвращает дневные записи пользователя в
	// диапазоне ключей [fromKey, toKey] включительно.
	ListDailyRange(ctx context.Context, userID shared.UserID, fromKey, toKey string) ([]*DailyActivity, error)

	// SaveRollup сохраняет периодическую свёртку, замещая
	// существующую с тем же ключом (user, period, startKey).
	SaveRollup(ctx context.Context, rollup *PeriodRollup) error

	// LoadRollup загружает свёртку периода.
	LoadRollup(ctx context.Context, userID shared.UserID, period Period, startKey string) (*PeriodRollup, error)

	// ListActiveUsers возвращает пользователей, имевших активность
	// в диапазоне дней; используется фоновым заданием свёрток.
	ListActiveUsers(ctx context.Context, fromKey, toKey string) ([]shared.UserID, error)
}
