package notification

import "context"

// Sender - порт доставки уведомлений. Контракт fire-and-forget:
// реализация может буферизовать, ретраить или терять уведомления,
// но вызывающий код никогда не блокируется на доставке и никогда
// не откатывает прогресс из-за сбоя отправки.
type Sender interface {
	// Send отправляет уведомление. Ошибка логируется вызывающим,
	// но не прерывает его работу.
	Send(ctx context.Context, n *Notification) error
}

// Repository - журнал отправленных уведомлений (для ленты в клиенте
// и дедупликации напоминаний).
type Repository interface {
	// Save записывает уведомление в журнал.
	Save(ctx context.Context, n *Notification) error

	// ListRecent возвращает последние уведомления пользователя.
	ListRecent(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// SentToday проверяет, отправлялось ли сегодня уведомление
	// данного типа (чтобы не спамить streak_at_risk).
	SentToday(ctx context.Context, userID string, t Type) (bool, error)
}
