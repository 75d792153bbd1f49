package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ScoreDistribution keeps one sorted set per mock test, member is the
// attempt ID and score is the graded total. Percentile ranking needs
// the strictly-lower count, which is a single ZCOUNT with an exclusive
// upper bound.
type ScoreDistribution struct {
	client *Client
}

// NewScoreDistribution creates a Redis-backed score distribution.
func NewScoreDistribution(client *Client) *ScoreDistribution {
	return &ScoreDistribution{client: client}
}

func scoresKey(mockTestID string) string {
	return PrefixScores + mockTestID
}

// RecordScore adds a submitted score to the test's distribution.
// Re-recording the same attempt updates its score in place.
func (d *ScoreDistribution) RecordScore(ctx context.Context, mockTestID string, attemptID string, score float64) error {
	err := d.client.rdb.ZAdd(ctx, scoresKey(mockTestID), redis.Z{
		Score:  score,
		Member: attemptID,
	}).Err()
	if err != nil {
		return fmt.Errorf("record score for test %s: %w", mockTestID, err)
	}
	return nil
}

// CountLower returns how many recorded scores are strictly lower.
func (d *ScoreDistribution) CountLower(ctx context.Context, mockTestID string, score float64) (int, error) {
	max := "(" + strconv.FormatFloat(score, 'f', -1, 64)
	count, err := d.client.rdb.ZCount(ctx, scoresKey(mockTestID), "-inf", max).Result()
	if err != nil {
		return 0, fmt.Errorf("count lower for test %s: %w", mockTestID, err)
	}
	return int(count), nil
}

// CountTotal returns the total number of recorded scores.
func (d *ScoreDistribution) CountTotal(ctx context.Context, mockTestID string) (int, error) {
	count, err := d.client.rdb.ZCard(ctx, scoresKey(mockTestID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count total for test %s: %w", mockTestID, err)
	}
	return int(count), nil
}
