package catalog

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO is the catalog's wire representation of a published course.
type CourseDTO struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Level       string       `json:"level"`
	Version     int          `json:"version"`
	PublishedAt time.Time    `json:"published_at"`
	Concepts    []ConceptDTO `json:"concepts"`
}

// ConceptDTO is a concept inside a course.
type ConceptDTO struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Order  int        `json:"order"`
	Topics []TopicDTO `json:"topics"`
}

// TopicDTO is a leaf topic inside a concept.
type TopicDTO struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Kind             string `json:"kind"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// APIErrorDTO is the catalog's error envelope.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return "catalog api error: " + e.Code + ": " + e.Message
}
