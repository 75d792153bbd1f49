// Package service contains the in-process adapters behind the domain
// provider interfaces: the achievement definition catalog, the stats
// snapshot builder, the quiz/problem history provider and the
// notification sender.
package service

import (
	"context"
	"sync"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// DefinitionCatalog serves achievement definitions from memory.
// Definitions are reference data shipped with the engine; they are
// validated once at startup and never mutated afterwards.
type DefinitionCatalog struct {
	mu   sync.RWMutex
	defs []achievement.Achievement
	byID map[string]int
}

// NewDefinitionCatalog validates and loads a set of definitions.
func NewDefinitionCatalog(defs []achievement.Achievement) (*DefinitionCatalog, error) {
	loaded, err := achievement.LoadDefinitions(defs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID] = i
	}
	return &DefinitionCatalog{defs: loaded, byID: byID}, nil
}

// NewDefaultDefinitionCatalog loads the built-in platform catalog.
func NewDefaultDefinitionCatalog() (*DefinitionCatalog, error) {
	return NewDefinitionCatalog(achievement.DefaultDefinitions())
}

// ListDefinitions returns all active definitions.
func (c *DefinitionCatalog) ListDefinitions(_ context.Context) ([]achievement.Achievement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]achievement.Achievement, len(c.defs))
	copy(out, c.defs)
	return out, nil
}

// GetDefinition returns the definition with the given ID.
// Returns shared.ErrAchievementNotFound if it does not exist.
func (c *DefinitionCatalog) GetDefinition(_ context.Context, id string) (*achievement.Achievement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, shared.ErrAchievementNotFound
	}
	def := c.defs[i]
	return &def, nil
}
