package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION JOURNAL IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository for
// PostgreSQL. The journal backs the in-app feed and the once-per-day
// dedup of reminder notifications.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

// Save writes a notification to the journal, minting an ID if the
// caller did not.
func (r *NotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	var payloadJSON []byte
	if len(n.Payload) > 0 {
		var err error
		payloadJSON, err = json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode notification payload: %w", err)
		}
	}

	query := `
		INSERT INTO notifications (id, user_id, type, priority, title, body, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.conn.Exec(ctx, query,
		n.ID,
		n.UserID.String(),
		string(n.Type),
		string(n.Priority),
		n.Title,
		n.Body,
		payloadJSON,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

// ListRecent returns the user's most recent notifications.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT id, user_id, type, priority, title, body, payload, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var uid, nType, priority string
		var payloadJSON []byte

		err := rows.Scan(&n.ID, &uid, &nType, &priority, &n.Title, &n.Body, &payloadJSON, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}

		n.UserID = shared.UserID(uid)
		n.Type = notification.Type(nType)
		n.Priority = notification.Priority(priority)
		if len(payloadJSON) > 0 {
			_ = json.Unmarshal(payloadJSON, &n.Payload)
		}

		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// SentToday reports whether a notification of the given type went out
// to the user since UTC midnight.
func (r *NotificationRepository) SentToday(ctx context.Context, userID string, t notification.Type) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND type = $2 AND created_at >= date_trunc('day', NOW())
		)
	`, userID, string(t)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sent notifications: %w", err)
	}
	return exists, nil
}
