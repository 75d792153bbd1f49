package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievementRepository implements achievement.UserRepository for
// PostgreSQL, one JSONB projection per (user, achievement) pair.
type UserAchievementRepository struct {
	conn *Connection
}

// NewUserAchievementRepository creates a new UserAchievementRepository.
func NewUserAchievementRepository(conn *Connection) *UserAchievementRepository {
	return &UserAchievementRepository{conn: conn}
}

// Load loads the projection for a (user, achievement) pair.
func (r *UserAchievementRepository) Load(ctx context.Context, userID shared.UserID, achievementID string) (*achievement.UserAchievement, error) {
	query := `
		SELECT doc, version
		FROM user_achievements
		WHERE user_id = $1 AND achievement_id = $2
	`

	var docJSON []byte
	var version int64
	err := r.conn.QueryRow(ctx, query, userID.String(), achievementID).Scan(&docJSON, &version)
	if IsNoRows(err) {
		return nil, shared.ErrUserAchievementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user achievement: %w", err)
	}

	return decodeUserAchievement(docJSON, version)
}

// LoadAll loads every projection of the user into a map keyed by
// achievement ID.
func (r *UserAchievementRepository) LoadAll(ctx context.Context, userID shared.UserID) (map[string]*achievement.UserAchievement, error) {
	query := `
		SELECT achievement_id, doc, version
		FROM user_achievements
		WHERE user_id = $1
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	defer rows.Close()

	projections := make(map[string]*achievement.UserAchievement)
	for rows.Next() {
		var achievementID string
		var docJSON []byte
		var version int64
		if err := rows.Scan(&achievementID, &docJSON, &version); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement row: %w", err)
		}

		ua, err := decodeUserAchievement(docJSON, version)
		if err != nil {
			return nil, err
		}
		projections[achievementID] = ua
	}

	return projections, rows.Err()
}

// Save persists the projection with a version check.
func (r *UserAchievementRepository) Save(ctx context.Context, ua *achievement.UserAchievement, expectedVersion int64) error {
	newVersion := expectedVersion + 1
	ua.Version = newVersion

	docJSON, err := json.Marshal(ua)
	if err != nil {
		ua.Version = expectedVersion
		return fmt.Errorf("failed to encode user achievement: %w", err)
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO user_achievements (user_id, achievement_id, doc, version, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`
		tag, err := r.conn.Exec(ctx, query,
			ua.UserID.String(),
			ua.AchievementID,
			docJSON,
			newVersion,
			time.Now().UTC(),
		)
		if err != nil {
			ua.Version = expectedVersion
			return fmt.Errorf("failed to insert user achievement: %w", err)
		}
		if tag.RowsAffected() == 0 {
			ua.Version = expectedVersion
			return shared.ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE user_achievements
		SET doc = $1, version = $2, updated_at = $3
		WHERE user_id = $4 AND achievement_id = $5 AND version = $6
	`
	tag, err := r.conn.Exec(ctx, query,
		docJSON,
		newVersion,
		time.Now().UTC(),
		ua.UserID.String(),
		ua.AchievementID,
		expectedVersion,
	)
	if err != nil {
		ua.Version = expectedVersion
		return fmt.Errorf("failed to update user achievement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		ua.Version = expectedVersion
		return shared.ErrVersionConflict
	}

	return nil
}

func decodeUserAchievement(docJSON []byte, version int64) (*achievement.UserAchievement, error) {
	var ua achievement.UserAchievement
	if err := json.Unmarshal(docJSON, &ua); err != nil {
		return nil, fmt.Errorf("failed to decode user achievement: %w", err)
	}
	ua.Version = version
	return &ua, nil
}
