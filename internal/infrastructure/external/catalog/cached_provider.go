package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// DefaultStructureTTL is how long cached structures live. Structures
// change only on catalog republish, which also invalidates explicitly,
// so the TTL is a backstop rather than the freshness mechanism.
const DefaultStructureTTL = 6 * time.Hour

// CachedProvider layers a structure cache in front of the catalog
// client. Cache failures degrade to the upstream provider instead of
// failing the request.
type CachedProvider struct {
	upstream course.StructureProvider
	cache    course.StructureCache
	ttl      time.Duration
	logger   *logger.Logger
}

// NewCachedProvider creates a caching structure provider.
func NewCachedProvider(upstream course.StructureProvider, cache course.StructureCache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultStructureTTL
	}
	if log == nil {
		log = logger.Default()
	}
	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   log.With(logger.String("component", "structure_provider")),
	}
}

// GetStructure returns the cached structure when present, otherwise
// fetches from the catalog and caches the result.
func (p *CachedProvider) GetStructure(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	structure, err := p.cache.Get(ctx, courseID)
	if err == nil {
		return structure, nil
	}
	if !errors.Is(err, shared.ErrStructureNotCached) {
		p.logger.Warn("structure cache read failed",
			logger.String("course_id", string(courseID)),
			logger.Err(err))
	}

	structure, err = p.upstream.GetStructure(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if cacheErr := p.cache.Set(ctx, structure, p.ttl); cacheErr != nil {
		p.logger.Warn("structure cache write failed",
			logger.String("course_id", string(courseID)),
			logger.Err(cacheErr))
	}
	return structure, nil
}

// Invalidate drops the cached structure, used when the catalog
// republishes a course.
func (p *CachedProvider) Invalidate(ctx context.Context, courseID shared.CourseID) error {
	return p.cache.Invalidate(ctx, courseID)
}
