package service

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// StatsProvider builds achievement stat snapshots by aggregating the
// persisted state: progress documents, the streak, enrollments and
// assessment attempts. Counters are recomputed from source on every
// snapshot instead of being maintained incrementally, so a missed
// event never leaves a counter permanently stale.
type StatsProvider struct {
	progresses  progress.Repository
	streaks     progress.StreakRepository
	enrollments course.EnrollmentRepository
	quizzes     assessment.QuizAttemptRepository
	attempts    assessment.AttemptRepository
	structures  course.StructureProvider
	log         *logger.Logger
}

// NewStatsProvider creates an aggregating stats provider.
func NewStatsProvider(
	progresses progress.Repository,
	streaks progress.StreakRepository,
	enrollments course.EnrollmentRepository,
	quizzes assessment.QuizAttemptRepository,
	attempts assessment.AttemptRepository,
	structures course.StructureProvider,
	log *logger.Logger,
) *StatsProvider {
	if log == nil {
		log = logger.Default()
	}
	return &StatsProvider{
		progresses:  progresses,
		streaks:     streaks,
		enrollments: enrollments,
		quizzes:     quizzes,
		attempts:    attempts,
		structures:  structures,
		log:         log.With(logger.String("component", "stats_provider")),
	}
}

// Snapshot collects the user's counters for achievement evaluation.
func (p *StatsProvider) Snapshot(ctx context.Context, userID shared.UserID) (achievement.StatSnapshot, error) {
	snapshot := achievement.StatSnapshot{
		UserID: userID,
		Stats:  make(map[achievement.CriteriaType]int),
		At:     time.Now(),
	}

	docs, err := p.progresses.ListByUser(ctx, userID)
	if err != nil {
		return snapshot, err
	}

	topics, concepts, problems, seconds := p.progressCounters(ctx, docs)
	snapshot.Stats[achievement.CriteriaTopicsCompleted] = topics
	snapshot.Stats[achievement.CriteriaConceptsCompleted] = concepts
	snapshot.Stats[achievement.CriteriaProblemsSolved] = problems
	snapshot.Stats[achievement.CriteriaTimeSpentHours] = seconds / 3600

	completed, err := p.enrollments.CountCompletedByUser(ctx, userID)
	if err != nil {
		return snapshot, err
	}
	snapshot.Stats[achievement.CriteriaCoursesCompleted] = completed

	streak, err := p.streaks.Load(ctx, userID)
	switch {
	case err == nil:
		snapshot.Stats[achievement.CriteriaStreakDays] = streak.CurrentStreak
	case shared.IsNotFound(err):
		snapshot.Stats[achievement.CriteriaStreakDays] = 0
	default:
		return snapshot, err
	}

	quizzesPassed, err := p.quizzes.CountPassedByUser(ctx, userID)
	if err != nil {
		return snapshot, err
	}
	snapshot.Stats[achievement.CriteriaQuizzesPassed] = quizzesPassed

	testsPassed, err := p.attempts.CountPassedByUser(ctx, userID)
	if err != nil {
		return snapshot, err
	}
	snapshot.Stats[achievement.CriteriaMockTestsPassed] = testsPassed

	return snapshot, nil
}

// progressCounters walks the progress documents and derives the
// topic, concept, problem and time counters. A course whose structure
// cannot be resolved contributes its topic counters but no problems;
// the next snapshot heals the gap.
func (p *StatsProvider) progressCounters(ctx context.Context, docs []*progress.CourseProgress) (topics, concepts, problems, seconds int) {
	for _, doc := range docs {
		concepts += doc.CompletedConceptCount()
		seconds += doc.TotalTimeSeconds

		var structure *course.Structure
		structure, err := p.structures.GetStructure(ctx, doc.CourseID)
		if err != nil {
			p.log.Warn("structure unavailable for stats",
				logger.String("course_id", string(doc.CourseID)),
				logger.Err(err))
			structure = nil
		}

		for i := range doc.Concepts {
			cp := &doc.Concepts[i]
			topics += cp.CompletedTopicCount()
			if structure == nil {
				continue
			}
			concept, findErr := structure.FindConcept(cp.ConceptID)
			if findErr != nil {
				continue
			}
			problems += summarizeProblems(concept, cp).SolvedProblems
		}
	}
	return topics, concepts, problems, seconds
}
