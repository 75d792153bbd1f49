package service

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// HistoryProvider implements progress.HistoryProvider on top of the
// assessment store and the progress documents. The mastery scorer asks
// for per-concept quiz and problem summaries; quizzes come from graded
// quiz attempts, problems are the coding topics of the concept.
type HistoryProvider struct {
	quizzes    assessment.QuizAttemptRepository
	progresses progress.Repository
	structures course.StructureProvider
}

// NewHistoryProvider creates a history provider.
func NewHistoryProvider(
	quizzes assessment.QuizAttemptRepository,
	progresses progress.Repository,
	structures course.StructureProvider,
) *HistoryProvider {
	return &HistoryProvider{
		quizzes:    quizzes,
		progresses: progresses,
		structures: structures,
	}
}

// QuizHistory summarizes a user's quiz attempts within a concept.
func (p *HistoryProvider) QuizHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (progress.QuizHistory, error) {
	attempts, err := p.quizzes.ListByConcept(ctx, userID, conceptID)
	if err != nil {
		return progress.QuizHistory{}, err
	}
	if len(attempts) == 0 {
		return progress.QuizHistory{}, nil
	}

	total := 0.0
	for _, a := range attempts {
		total += a.ScorePct
	}
	return progress.QuizHistory{
		AttemptCount: len(attempts),
		AverageScore: total / float64(len(attempts)),
	}, nil
}

// ProblemHistory counts the coding topics of a concept and how many of
// them the user has completed. A concept without coding topics yields
// an empty history, which the mastery scorer renormalizes away.
func (p *HistoryProvider) ProblemHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (progress.ProblemHistory, error) {
	docs, err := p.progresses.ListByUser(ctx, userID)
	if err != nil {
		return progress.ProblemHistory{}, err
	}

	for _, doc := range docs {
		cp := doc.FindConcept(conceptID)
		if cp == nil {
			continue
		}

		structure, err := p.structures.GetStructure(ctx, doc.CourseID)
		if err != nil {
			return progress.ProblemHistory{}, err
		}
		concept, err := structure.FindConcept(conceptID)
		if err != nil {
			continue
		}

		return summarizeProblems(concept, cp), nil
	}
	return progress.ProblemHistory{}, nil
}

func summarizeProblems(concept *course.Concept, cp *progress.ConceptProgress) progress.ProblemHistory {
	var history progress.ProblemHistory
	for _, topic := range concept.Topics {
		if topic.Kind != course.TopicKindCoding {
			continue
		}
		history.TotalProblems++
		if isTopicCompleted(cp, topic.ID) {
			history.SolvedProblems++
		}
	}
	return history
}

func isTopicCompleted(cp *progress.ConceptProgress, topicID shared.TopicID) bool {
	for _, t := range cp.Topics {
		if t.TopicID == topicID {
			return t.Completed
		}
	}
	return false
}
