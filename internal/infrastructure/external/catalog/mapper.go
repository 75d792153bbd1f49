package catalog

import (
	"fmt"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO TO DOMAIN MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts catalog DTOs to domain entities.
type Mapper struct{}

// NewMapper creates a new mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// StructureFromDTO converts a CourseDTO into a validated course.Structure.
// Any shape the domain rejects surfaces as shared.ErrCatalogInvalidResponse,
// wrapped with the underlying validation error.
func (m *Mapper) StructureFromDTO(dto *CourseDTO) (*course.Structure, error) {
	concepts := make([]course.Concept, 0, len(dto.Concepts))
	for _, c := range dto.Concepts {
		topics := make([]course.Topic, 0, len(c.Topics))
		for _, t := range c.Topics {
			topics = append(topics, course.Topic{
				ID:               shared.TopicID(t.ID),
				Title:            t.Title,
				Kind:             course.TopicKind(t.Kind),
				EstimatedMinutes: t.EstimatedMinutes,
			})
		}
		concepts = append(concepts, course.Concept{
			ID:     shared.ConceptID(c.ID),
			Title:  c.Title,
			Order:  c.Order,
			Topics: topics,
		})
	}

	structure := &course.Structure{
		CourseID:  shared.CourseID(dto.ID),
		Title:     dto.Title,
		Level:     course.CourseLevel(dto.Level),
		Concepts:  concepts,
		Version:   dto.Version,
		FetchedAt: time.Now(),
	}
	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("%w: course %s: %v", shared.ErrCatalogInvalidResponse, dto.ID, err)
	}
	return structure, nil
}
