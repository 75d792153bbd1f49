package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// StructureCache caches course structures in Redis as JSON snapshots.
// Structures change only when the catalog republishes a course, so the
// default TTL is long and an explicit Invalidate handles republishes.
type StructureCache struct {
	client *Client
}

// NewStructureCache creates a Redis-backed course structure cache.
func NewStructureCache(client *Client) *StructureCache {
	return &StructureCache{client: client}
}

func structureKey(courseID shared.CourseID) string {
	return PrefixStructure + string(courseID)
}

// Get returns a cached structure, or shared.ErrStructureNotCached on miss.
func (c *StructureCache) Get(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	data, err := c.client.rdb.Get(ctx, structureKey(courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrStructureNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("get structure %s: %w", courseID, err)
	}

	var structure course.Structure
	if err := json.Unmarshal(data, &structure); err != nil {
		return nil, fmt.Errorf("%w: structure %s: %v", ErrSerialization, courseID, err)
	}
	// A snapshot that no longer validates is treated as a miss so the
	// caller refetches from the catalog instead of serving garbage.
	if err := structure.Validate(); err != nil {
		return nil, shared.ErrStructureNotCached
	}
	return &structure, nil
}

// Set caches a structure with the given TTL.
func (c *StructureCache) Set(ctx context.Context, structure *course.Structure, ttl time.Duration) error {
	data, err := json.Marshal(structure)
	if err != nil {
		return fmt.Errorf("%w: structure %s: %v", ErrSerialization, structure.CourseID, err)
	}
	if err := c.client.rdb.Set(ctx, structureKey(structure.CourseID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set structure %s: %w", structure.CourseID, err)
	}
	return nil
}

// Invalidate drops a cached structure, forcing a catalog refetch.
func (c *StructureCache) Invalidate(ctx context.Context, courseID shared.CourseID) error {
	if err := c.client.rdb.Del(ctx, structureKey(courseID)).Err(); err != nil {
		return fmt.Errorf("invalidate structure %s: %w", courseID, err)
	}
	return nil
}
