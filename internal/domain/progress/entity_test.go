package progress

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func buildStructure(t *testing.T, topicsPerConcept ...int) *course.Structure {
	t.Helper()
	concepts := make([]course.Concept, 0, len(topicsPerConcept))
	for ci, n := range topicsPerConcept {
		topics := make([]course.Topic, 0, n)
		for ti := 0; ti < n; ti++ {
			topics = append(topics, course.Topic{
				ID:   shared.TopicID(fmt.Sprintf("t-%d-%d", ci, ti)),
				Kind: course.TopicKindVideo,
			})
		}
		concepts = append(concepts, course.Concept{
			ID:     shared.ConceptID(fmt.Sprintf("c-%d", ci)),
			Order:  ci,
			Topics: topics,
		})
	}
	s, err := course.NewStructure("course-1", "Test Course", course.LevelBeginner, concepts)
	require.NoError(t, err)
	return s
}

func completionEvent(conceptID, topicID string, completed bool, seconds int) ActivityEvent {
	return ActivityEvent{
		UserID:           "user-1",
		CourseID:         "course-1",
		ConceptID:        shared.ConceptID(conceptID),
		TopicID:          shared.TopicID(topicID),
		Kind:             ActivityVideo,
		Completed:        completed,
		TimeSpentSeconds: seconds,
		OccurredAt:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestApplyEvent_CompletionIsIdempotent_TimeAccumulates(t *testing.T) {
	structure := buildStructure(t, 2)
	p := NewCourseProgress("user-1", "course-1")

	event := completionEvent("c-0", "t-0-0", true, 120)

	changes, err := p.ApplyEvent(event, structure)
	require.NoError(t, err)
	assert.True(t, changes.TopicCompleted)

	// Re-applying the same completion three more times must not move
	// any completion flag, but time keeps accumulating.
	for i := 0; i < 3; i++ {
		changes, err = p.ApplyEvent(event, structure)
		require.NoError(t, err)
		assert.False(t, changes.TopicCompleted)
		assert.False(t, changes.ConceptCompleted)
	}

	cp := p.FindConcept("c-0")
	require.NotNil(t, cp)
	topic := cp.Topics[0]
	assert.True(t, topic.Completed)
	assert.Equal(t, 4*120, topic.TimeSpentSeconds)
	assert.InDelta(t, 50.0, cp.Progress, 0.001)
	assert.False(t, cp.Completed)
}

func TestApplyEvent_DeduplicatesByEventID(t *testing.T) {
	structure := buildStructure(t, 2)
	p := NewCourseProgress("user-1", "course-1")

	event := completionEvent("c-0", "t-0-0", true, 60)
	event.EventID = "3b9b1c1e-1111-4222-8333-444455556666"

	_, err := p.ApplyEvent(event, structure)
	require.NoError(t, err)
	_, err = p.ApplyEvent(event, structure)
	require.NoError(t, err)

	cp := p.FindConcept("c-0")
	require.NotNil(t, cp)
	// Exact redelivery is dropped entirely, so time is counted once.
	assert.Equal(t, 60, cp.Topics[0].TimeSpentSeconds)
}

func TestApplyEvent_ConceptCompletesWhenAllTopicsComplete(t *testing.T) {
	structure := buildStructure(t, 3)
	p := NewCourseProgress("user-1", "course-1")

	for i, topicID := range []string{"t-0-0", "t-0-1", "t-0-2"} {
		changes, err := p.ApplyEvent(completionEvent("c-0", topicID, true, 30), structure)
		require.NoError(t, err)
		if i < 2 {
			assert.False(t, changes.ConceptCompleted)
		} else {
			assert.True(t, changes.ConceptCompleted)
		}
	}

	cp := p.FindConcept("c-0")
	require.NotNil(t, cp)
	assert.True(t, cp.Completed)
	assert.InDelta(t, 100.0, cp.Progress, 0.001)
	assert.True(t, p.Completed)
	assert.True(t, p.OverallProgress >= 100)
}

func TestApplyEvent_UntouchedTopicKeepsConceptIncomplete(t *testing.T) {
	structure := buildStructure(t, 2)
	p := NewCourseProgress("user-1", "course-1")

	_, err := p.ApplyEvent(completionEvent("c-0", "t-0-0", true, 10), structure)
	require.NoError(t, err)

	cp := p.FindConcept("c-0")
	require.NotNil(t, cp)
	assert.False(t, cp.Completed, "concept with one of two topics done must stay incomplete")
	assert.InDelta(t, 50.0, cp.Progress, 0.001)
}

func TestApplyEvent_OverallProgressIsTopicWeighted(t *testing.T) {
	// Concept 0 has 1 topic, concept 1 has 3 topics. Completing only
	// the single-topic concept yields 25%, not 50%.
	structure := buildStructure(t, 1, 3)
	p := NewCourseProgress("user-1", "course-1")

	_, err := p.ApplyEvent(completionEvent("c-0", "t-0-0", true, 10), structure)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, p.OverallProgress, 0.001)
}

func TestApplyEvent_OverallProgressProperty(t *testing.T) {
	// Property: overall progress always stays in [0, 100] and equals
	// the topic-count-weighted mean across concepts, for random
	// topic-count distributions and random completion subsets.
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		conceptCount := 1 + rng.Intn(5)
		topicCounts := make([]int, conceptCount)
		for i := range topicCounts {
			topicCounts[i] = 1 + rng.Intn(6)
		}
		structure := buildStructure(t, topicCounts...)
		p := NewCourseProgress("user-1", "course-1")

		totalTopics := 0
		completedTopics := 0
		expectedWeighted := 0.0
		for ci, n := range topicCounts {
			totalTopics += n
			done := rng.Intn(n + 1)
			completedTopics += done
			expectedWeighted += 100 * float64(done)
			for ti := 0; ti < done; ti++ {
				topicID := fmt.Sprintf("t-%d-%d", ci, ti)
				_, err := p.ApplyEvent(completionEvent(fmt.Sprintf("c-%d", ci), topicID, true, 1), structure)
				require.NoError(t, err)
			}
		}
		expected := expectedWeighted / float64(totalTopics)

		assert.GreaterOrEqual(t, p.OverallProgress, 0.0)
		assert.LessOrEqual(t, p.OverallProgress, 100.0)
		assert.InDelta(t, expected, p.OverallProgress, 0.001,
			"run %d: topic counts %v, %d completed", run, topicCounts, completedTopics)
	}
}

func TestApplyEvent_UnknownTopicIsDataIntegrityFault(t *testing.T) {
	structure := buildStructure(t, 2)
	p := NewCourseProgress("user-1", "course-1")

	event := completionEvent("c-0", "no-such-topic", true, 10)
	_, err := p.ApplyEvent(event, structure)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestApplyEvent_RejectsForeignEvent(t *testing.T) {
	structure := buildStructure(t, 1)
	p := NewCourseProgress("user-1", "course-1")

	event := completionEvent("c-0", "t-0-0", true, 10)
	event.UserID = "someone-else"
	_, err := p.ApplyEvent(event, structure)
	require.Error(t, err)
}

func TestApplyEvent_LastAccessedAtTracksEventTime(t *testing.T) {
	structure := buildStructure(t, 1)
	p := NewCourseProgress("user-1", "course-1")

	event := completionEvent("c-0", "t-0-0", false, 45)
	_, err := p.ApplyEvent(event, structure)
	require.NoError(t, err)

	assert.Equal(t, event.OccurredAt, p.LastAccessedAt)
	assert.Equal(t, 45, p.TotalTimeSeconds)
}

func TestActivityEvent_Validate(t *testing.T) {
	valid := completionEvent("c-0", "t-0-0", true, 10)
	assert.NoError(t, valid.Validate())

	badKind := valid
	badKind.Kind = "podcast"
	assert.ErrorIs(t, badKind.Validate(), shared.ErrValidation)

	negative := valid
	negative.TimeSpentSeconds = -1
	assert.ErrorIs(t, negative.Validate(), shared.ErrNegativeValue)

	noUser := valid
	noUser.UserID = ""
	assert.ErrorIs(t, noUser.Validate(), shared.ErrInvalidID)
}

func TestActivityEvent_Normalize_DefaultsOccurredAt(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	event := completionEvent("c-0", "t-0-0", true, 10)
	event.OccurredAt = time.Time{}
	normalized := event.Normalize(now)
	assert.Equal(t, now, normalized.OccurredAt)

	// An explicit timestamp survives normalization.
	stamped := completionEvent("c-0", "t-0-0", true, 10)
	assert.Equal(t, stamped.OccurredAt, stamped.Normalize(now).OccurredAt)
}

func TestActivityEvent_ValidateAgainst(t *testing.T) {
	structure := buildStructure(t, 2)

	ok := completionEvent("c-0", "t-0-1", true, 10)
	assert.NoError(t, ok.ValidateAgainst(structure))

	wrongConcept := completionEvent("c-9", "t-0-1", true, 10)
	assert.Error(t, wrongConcept.ValidateAgainst(structure))

	wrongCourse := completionEvent("c-0", "t-0-1", true, 10)
	wrongCourse.CourseID = "other-course"
	assert.Error(t, wrongCourse.ValidateAgainst(structure))
}
