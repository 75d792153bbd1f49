package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func validCourseJSON() string {
	return `{
		"id": "go-basics",
		"title": "Go Basics",
		"level": "beginner",
		"version": 3,
		"published_at": "2026-02-01T00:00:00Z",
		"concepts": [
			{
				"id": "c-syntax",
				"title": "Syntax",
				"order": 1,
				"topics": [
					{"id": "t-vars", "title": "Variables", "kind": "video", "estimated_minutes": 10},
					{"id": "t-loops", "title": "Loops", "kind": "coding", "estimated_minutes": 25}
				]
			},
			{
				"id": "c-types",
				"title": "Types",
				"order": 2,
				"topics": [
					{"id": "t-structs", "title": "Structs", "kind": "article", "estimated_minutes": 15}
				]
			}
		]
	}`
}

func TestClient_GetStructure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/go-basics/structure", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(validCourseJSON()))
	}))
	defer server.Close()

	cfg := DefaultClientConfig(server.URL)
	cfg.APIKey = "test-key"
	client := NewClient(cfg)

	structure, err := client.GetStructure(context.Background(), "go-basics")
	require.NoError(t, err)

	assert.Equal(t, shared.CourseID("go-basics"), structure.CourseID)
	assert.Equal(t, "Go Basics", structure.Title)
	assert.Equal(t, course.LevelBeginner, structure.Level)
	assert.Equal(t, 3, structure.Version)
	assert.Equal(t, 3, structure.TotalTopics())

	concept, err := structure.FindConcept("c-syntax")
	require.NoError(t, err)
	assert.Equal(t, course.TopicKindCoding, concept.Topics[1].Kind)
}

func TestClient_GetStructure_NotFound(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL))

	_, err := client.GetStructure(context.Background(), "no-such-course")
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
	assert.Equal(t, 1, requests, "404 must not be retried")
}

func TestClient_GetStructure_RetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(validCourseJSON()))
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL))

	structure, err := client.GetStructure(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Equal(t, 3, requests)
	assert.Equal(t, "Go Basics", structure.Title)
}

func TestClient_GetStructure_InvalidShape(t *testing.T) {
	// A course with zero concepts fails domain validation.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CourseDTO{ID: "empty", Title: "Empty"})
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL))

	_, err := client.GetStructure(context.Background(), "empty")
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidResponse)
}

// ─────────────────────────────────────────────────────────────────────────────
// CACHED PROVIDER
// ─────────────────────────────────────────────────────────────────────────────

type memoryStructureCache struct {
	mu      sync.Mutex
	entries map[shared.CourseID]*course.Structure
}

func newMemoryStructureCache() *memoryStructureCache {
	return &memoryStructureCache{entries: make(map[shared.CourseID]*course.Structure)}
}

func (c *memoryStructureCache) Get(_ context.Context, courseID shared.CourseID) (*course.Structure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[courseID]
	if !ok {
		return nil, shared.ErrStructureNotCached
	}
	return s, nil
}

func (c *memoryStructureCache) Set(_ context.Context, structure *course.Structure, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[structure.CourseID] = structure
	return nil
}

func (c *memoryStructureCache) Invalidate(_ context.Context, courseID shared.CourseID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, courseID)
	return nil
}

func TestCachedProvider_FetchesOnceThenServesFromCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(validCourseJSON()))
	}))
	defer server.Close()

	cache := newMemoryStructureCache()
	provider := NewCachedProvider(NewClient(DefaultClientConfig(server.URL)), cache, time.Hour, nil)

	for i := 0; i < 3; i++ {
		structure, err := provider.GetStructure(context.Background(), "go-basics")
		require.NoError(t, err)
		assert.Equal(t, "Go Basics", structure.Title)
	}
	assert.Equal(t, 1, requests)
}

func TestCachedProvider_InvalidateForcesRefetch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(validCourseJSON()))
	}))
	defer server.Close()

	cache := newMemoryStructureCache()
	provider := NewCachedProvider(NewClient(DefaultClientConfig(server.URL)), cache, time.Hour, nil)

	_, err := provider.GetStructure(context.Background(), "go-basics")
	require.NoError(t, err)

	require.NoError(t, provider.Invalidate(context.Background(), "go-basics"))

	_, err = provider.GetStructure(context.Background(), "go-basics")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}
