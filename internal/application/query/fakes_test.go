package query

import (
	"context"
	"sort"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/learningpath"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

type fakeStructureProvider struct {
	structures map[shared.CourseID]*course.Structure
}

func (p *fakeStructureProvider) GetStructure(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	s, ok := p.structures[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return s, nil
}

type fakeProgressRepo struct {
	docs map[string]*progress.CourseProgress
}

func (r *fakeProgressRepo) key(userID shared.UserID, courseID shared.CourseID) string {
	return userID.String() + "/" + courseID.String()
}

func (r *fakeProgressRepo) Load(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*progress.CourseProgress, error) {
	doc, ok := r.docs[r.key(userID, courseID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return doc, nil
}

func (r *fakeProgressRepo) Save(ctx context.Context, doc *progress.CourseProgress, expectedVersion int64) error {
	r.docs[r.key(doc.UserID, doc.CourseID)] = doc
	return nil
}

func (r *fakeProgressRepo) ListByUser(ctx context.Context, userID shared.UserID) ([]*progress.CourseProgress, error) {
	var out []*progress.CourseProgress
	for _, doc := range r.docs {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

type fakeStreakRepo struct {
	streaks map[shared.UserID]*progress.Streak
}

func (r *fakeStreakRepo) Load(ctx context.Context, userID shared.UserID) (*progress.Streak, error) {
	streak, ok := r.streaks[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return streak, nil
}

func (r *fakeStreakRepo) Save(ctx context.Context, streak *progress.Streak, expectedVersion int64) error {
	r.streaks[streak.UserID] = streak
	return nil
}

func (r *fakeStreakRepo) ListAtRisk(ctx context.Context, limit int) ([]*progress.Streak, error) {
	return nil, nil
}

// fakeHistoryProvider returns fixed per-concept histories.
type fakeHistoryProvider struct {
	quizzes  map[shared.ConceptID]progress.QuizHistory
	problems map[shared.ConceptID]progress.ProblemHistory
}

func (p *fakeHistoryProvider) QuizHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (progress.QuizHistory, error) {
	return p.quizzes[conceptID], nil
}

func (p *fakeHistoryProvider) ProblemHistory(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) (progress.ProblemHistory, error) {
	return p.problems[conceptID], nil
}

type fakeDefinitionRepo struct {
	defs []achievement.Achievement
}

func (r *fakeDefinitionRepo) ListDefinitions(ctx context.Context) ([]achievement.Achievement, error) {
	return r.defs, nil
}

func (r *fakeDefinitionRepo) GetDefinition(ctx context.Context, id string) (*achievement.Achievement, error) {
	for i := range r.defs {
		if r.defs[i].ID == id {
			return &r.defs[i], nil
		}
	}
	return nil, shared.ErrAchievementNotFound
}

type fakeUserAchievementRepo struct {
	projections map[string]*achievement.UserAchievement
}

func (r *fakeUserAchievementRepo) Load(ctx context.Context, userID shared.UserID, achievementID string) (*achievement.UserAchievement, error) {
	ua, ok := r.projections[achievementID]
	if !ok {
		return nil, shared.ErrUserAchievementNotFound
	}
	return ua, nil
}

func (r *fakeUserAchievementRepo) LoadAll(ctx context.Context, userID shared.UserID) (map[string]*achievement.UserAchievement, error) {
	return r.projections, nil
}

func (r *fakeUserAchievementRepo) Save(ctx context.Context, ua *achievement.UserAchievement, expectedVersion int64) error {
	r.projections[ua.AchievementID] = ua
	return nil
}

type fakePathRepo struct {
	paths map[string]*learningpath.Path
}

func (r *fakePathRepo) GetPath(ctx context.Context, id string) (*learningpath.Path, error) {
	p, ok := r.paths[id]
	if !ok {
		return nil, shared.NewDomainError("learningpath", "GetPath", shared.ErrNotFound, "path not found")
	}
	return p, nil
}

func (r *fakePathRepo) ListPaths(ctx context.Context) ([]*learningpath.Path, error) {
	var out []*learningpath.Path
	for _, p := range r.paths {
		out = append(out, p)
	}
	return out, nil
}

type fakeTestRepo struct {
	tests map[string]*assessment.MockTest
}

func (r *fakeTestRepo) GetTest(ctx context.Context, id string) (*assessment.MockTest, error) {
	t, ok := r.tests[id]
	if !ok {
		return nil, shared.ErrMockTestNotFound
	}
	return t, nil
}

type fakeAttemptRepo struct {
	attempts []*assessment.Attempt
}

func (r *fakeAttemptRepo) SaveAttempt(ctx context.Context, attempt *assessment.Attempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *fakeAttemptRepo) NextAttemptNumber(ctx context.Context, userID shared.UserID, mockTestID string) (int, error) {
	return len(r.attempts) + 1, nil
}

func (r *fakeAttemptRepo) ListAttempts(ctx context.Context, userID shared.UserID, mockTestID string) ([]*assessment.Attempt, error) {
	var out []*assessment.Attempt
	for _, a := range r.attempts {
		if a.UserID == userID && a.MockTestID == mockTestID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (r *fakeAttemptRepo) ListAllGraded(ctx context.Context, mockTestID string) ([]*assessment.Attempt, error) {
	return r.attempts, nil
}

func (r *fakeAttemptRepo) CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	return 0, nil
}
