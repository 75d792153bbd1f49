// Package course contains the course structure domain: the concept/topic
// tree that progress rollups are computed against, and learner enrollments.
// This is a pure domain layer with zero external dependencies.
package course

import (
	"errors"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// Domain errors for course package.
var (
	ErrInvalidCourseID  = errors.New("course: invalid course ID")
	ErrInvalidConceptID = errors.New("course: invalid concept ID")
	ErrInvalidTopicID   = errors.New("course: invalid topic ID")
	ErrEmptyStructure   = errors.New("course: structure has no concepts")
	ErrEmptyConcept     = errors.New("course: concept has no topics")
	ErrDuplicateConcept = errors.New("course: duplicate concept ID")
	ErrDuplicateTopic   = errors.New("course: duplicate topic ID")
	ErrConceptNotFound  = errors.New("course: concept not found in structure")
	ErrTopicNotFound    = errors.New("course: topic not found in concept")
	ErrUnknownTopicKind = errors.New("course: unknown topic kind")
	ErrAlreadyEnrolled  = errors.New("course: learner already enrolled")
	ErrNotEnrolled      = errors.New("course: learner not enrolled")
)

// TopicKind classifies the content type of a topic. The kind determines
// which activity events are meaningful for it and which mastery component
// the topic feeds.
type TopicKind string

const (
	TopicKindVideo   TopicKind = "video"
	TopicKindArticle TopicKind = "article"
	TopicKindCoding  TopicKind = "coding"
	TopicKindQuiz    TopicKind = "quiz"
)

// IsValid reports whether the kind is one of the known content types.
func (k TopicKind) IsValid() bool {
	switch k {
	case TopicKindVideo, TopicKindArticle, TopicKindCoding, TopicKindQuiz:
		return true
	}
	return false
}

// String returns the string representation of TopicKind.
func (k TopicKind) String() string {
	return string(k)
}

// CourseLevel represents the difficulty level of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// Topic is a leaf node of the course tree: a single piece of content
// a learner works through.
type Topic struct {
	ID    shared.TopicID
	Title string
	Kind  TopicKind

	// EstimatedMinutes is the expected time to complete, used by
	// analytics to compare actual vs expected effort.
	EstimatedMinutes int
}

// Concept groups an ordered list of topics. A concept completes when
// every topic in it completes.
type Concept struct {
	ID     shared.ConceptID
	Title  string
	Order  int
	Topics []Topic
}

// TopicCount returns the number of topics in the concept.
func (c *Concept) TopicCount() int {
	return len(c.Topics)
}

// FindTopic returns the topic with the given ID, or ErrTopicNotFound.
func (c *Concept) FindTopic(topicID shared.TopicID) (*Topic, error) {
	for i := range c.Topics {
		if c.Topics[i].ID == topicID {
			return &c.Topics[i], nil
		}
	}
	return nil, ErrTopicNotFound
}

// Structure is the immutable concept/topic tree of a course. It is the
// authoritative shape that progress documents are rolled up against:
// overall progress weights each concept by its topic count, so the
// structure must be validated before any rollup uses it.
type Structure struct {
	CourseID shared.CourseID
	Title    string
	Level    CourseLevel
	Concepts []Concept

	// Version of the structure; bumped when the catalog republishes
	// the course. Cached snapshots carry this so stale caches can be
	// detected.
	Version   int
	FetchedAt time.Time
}

// NewStructure builds and validates a course structure.
func NewStructure(courseID shared.CourseID, title string, level CourseLevel, concepts []Concept) (*Structure, error) {
	if !courseID.IsValid() {
		return nil, ErrInvalidCourseID
	}
	s := &Structure{
		CourseID:  courseID,
		Title:     title,
		Level:     level,
		Concepts:  concepts,
		Version:   1,
		FetchedAt: time.Now(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the structural invariants of the tree: non-empty,
// no duplicate IDs, every topic has a known kind.
func (s *Structure) Validate() error {
	if len(s.Concepts) == 0 {
		return ErrEmptyStructure
	}

	seenConcepts := make(map[shared.ConceptID]struct{}, len(s.Concepts))
	seenTopics := make(map[shared.TopicID]struct{})

	for _, concept := range s.Concepts {
		if !concept.ID.IsValid() {
			return ErrInvalidConceptID
		}
		if _, dup := seenConcepts[concept.ID]; dup {
			return ErrDuplicateConcept
		}
		seenConcepts[concept.ID] = struct{}{}

		if len(concept.Topics) == 0 {
			return ErrEmptyConcept
		}
		for _, topic := range concept.Topics {
			if !topic.ID.IsValid() {
				return ErrInvalidTopicID
			}
			if _, dup := seenTopics[topic.ID]; dup {
				return ErrDuplicateTopic
			}
			seenTopics[topic.ID] = struct{}{}
			if !topic.Kind.IsValid() {
				return ErrUnknownTopicKind
			}
		}
	}
	return nil
}

// FindConcept returns the concept with the given ID, or ErrConceptNotFound.
func (s *Structure) FindConcept(conceptID shared.ConceptID) (*Concept, error) {
	for i := range s.Concepts {
		if s.Concepts[i].ID == conceptID {
			return &s.Concepts[i], nil
		}
	}
	return nil, ErrConceptNotFound
}

// Locate resolves a (concept, topic) pair against the tree. Both must
// exist and the topic must belong to that concept.
func (s *Structure) Locate(conceptID shared.ConceptID, topicID shared.TopicID) (*Concept, *Topic, error) {
	concept, err := s.FindConcept(conceptID)
	if err != nil {
		return nil, nil, err
	}
	topic, err := concept.FindTopic(topicID)
	if err != nil {
		return nil, nil, err
	}
	return concept, topic, nil
}

// TotalTopics returns the number of topics across all concepts.
func (s *Structure) TotalTopics() int {
	total := 0
	for _, c := range s.Concepts {
		total += len(c.Topics)
	}
	return total
}

// ConceptWeights returns, per concept, the weight it carries in the
// course-level rollup: topicCount / totalTopics. Weights sum to 1.
func (s *Structure) ConceptWeights() map[shared.ConceptID]float64 {
	total := s.TotalTopics()
	weights := make(map[shared.ConceptID]float64, len(s.Concepts))
	if total == 0 {
		return weights
	}
	for _, c := range s.Concepts {
		weights[c.ID] = float64(len(c.Topics)) / float64(total)
	}
	return weights
}

// EnrollmentStatus represents the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// Enrollment links a learner to a course. Activity events for a course
// the learner is not enrolled in are rejected at ingest.
type Enrollment struct {
	UserID     shared.UserID
	CourseID   shared.CourseID
	Status     EnrollmentStatus
	EnrolledAt time.Time

	// CompletedAt is set when overall progress first reaches 100.
	CompletedAt *time.Time
}

// NewEnrollment creates a new active enrollment.
func NewEnrollment(userID shared.UserID, courseID shared.CourseID, enrolledAt time.Time) (*Enrollment, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidID
	}
	if !courseID.IsValid() {
		return nil, ErrInvalidCourseID
	}
	if enrolledAt.IsZero() {
		enrolledAt = time.Now()
	}
	return &Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     EnrollmentActive,
		EnrolledAt: enrolledAt,
	}, nil
}

// IsActive reports whether events should be accepted for this enrollment.
// Completed enrollments still accept events (time keeps accumulating).
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}

// MarkCompleted transitions the enrollment to completed. Idempotent.
func (e *Enrollment) MarkCompleted(at time.Time) {
	if e.Status == EnrollmentCompleted {
		return
	}
	e.Status = EnrollmentCompleted
	e.CompletedAt = &at
}

// Drop marks the enrollment as dropped.
func (e *Enrollment) Drop() error {
	if e.Status == EnrollmentDropped {
		return ErrNotEnrolled
	}
	e.Status = EnrollmentDropped
	return nil
}
