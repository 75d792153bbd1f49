package command

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// ─────────────────────────────────────────────────────────────────────────────
// progress fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	mu   sync.Mutex
	docs map[string]*progress.CourseProgress

	// conflictsLeft injects version conflicts into the next saves.
	conflictsLeft int
	saves         int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{docs: make(map[string]*progress.CourseProgress)}
}

func progressKey(userID shared.UserID, courseID shared.CourseID) string {
	return userID.String() + "/" + courseID.String()
}

func (r *fakeProgressRepo) Load(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*progress.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[progressKey(userID, courseID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	clone := *doc
	return &clone, nil
}

func (r *fakeProgressRepo) Save(ctx context.Context, doc *progress.CourseProgress, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return shared.ErrVersionConflict
	}
	key := progressKey(doc.UserID, doc.CourseID)
	if existing, ok := r.docs[key]; ok && existing.Version != expectedVersion {
		return shared.ErrVersionConflict
	}
	clone := *doc
	clone.Version = expectedVersion + 1
	r.docs[key] = &clone
	doc.Version = clone.Version
	return nil
}

func (r *fakeProgressRepo) ListByUser(ctx context.Context, userID shared.UserID) ([]*progress.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*progress.CourseProgress
	for _, doc := range r.docs {
		if doc.UserID == userID {
			clone := *doc
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

type fakeStreakRepo struct {
	mu      sync.Mutex
	streaks map[shared.UserID]*progress.Streak
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{streaks: make(map[shared.UserID]*progress.Streak)}
}

func (r *fakeStreakRepo) Load(ctx context.Context, userID shared.UserID) (*progress.Streak, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	streak, ok := r.streaks[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	clone := *streak
	return &clone, nil
}

func (r *fakeStreakRepo) Save(ctx context.Context, streak *progress.Streak, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.streaks[streak.UserID]; ok && existing.Version != expectedVersion {
		return shared.ErrVersionConflict
	}
	clone := *streak
	clone.Version = expectedVersion + 1
	r.streaks[streak.UserID] = &clone
	streak.Version = clone.Version
	return nil
}

func (r *fakeStreakRepo) ListAtRisk(ctx context.Context, limit int) ([]*progress.Streak, error) {
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// course fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeStructureProvider struct {
	structures map[shared.CourseID]*course.Structure
}

func newFakeStructureProvider(structures ...*course.Structure) *fakeStructureProvider {
	p := &fakeStructureProvider{structures: make(map[shared.CourseID]*course.Structure)}
	for _, s := range structures {
		p.structures[s.CourseID] = s
	}
	return p
}

func (p *fakeStructureProvider) GetStructure(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	s, ok := p.structures[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return s, nil
}

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]*course.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]*course.Enrollment)}
}

func (r *fakeEnrollmentRepo) Save(ctx context.Context, e *course.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.enrollments[progressKey(e.UserID, e.CourseID)] = &clone
	return nil
}

func (r *fakeEnrollmentRepo) Get(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (*course.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[progressKey(userID, courseID)]
	if !ok {
		return nil, shared.ErrNotEnrolled
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEnrollmentRepo) ListByUser(ctx context.Context, userID shared.UserID) ([]*course.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*course.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) CountCompletedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.enrollments {
		if e.UserID == userID && e.Status == course.EnrollmentCompleted {
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// achievement fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserAchievementRepo struct {
	mu          sync.Mutex
	projections map[string]*achievement.UserAchievement
}

func newFakeUserAchievementRepo() *fakeUserAchievementRepo {
	return &fakeUserAchievementRepo{projections: make(map[string]*achievement.UserAchievement)}
}

func uaKey(userID shared.UserID, achievementID string) string {
	return userID.String() + "/" + achievementID
}

func (r *fakeUserAchievementRepo) Load(ctx context.Context, userID shared.UserID, achievementID string) (*achievement.UserAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ua, ok := r.projections[uaKey(userID, achievementID)]
	if !ok {
		return nil, shared.ErrUserAchievementNotFound
	}
	clone := *ua
	return &clone, nil
}

func (r *fakeUserAchievementRepo) LoadAll(ctx context.Context, userID shared.UserID) (map[string]*achievement.UserAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*achievement.UserAchievement)
	for _, ua := range r.projections {
		if ua.UserID == userID {
			clone := *ua
			out[ua.AchievementID] = &clone
		}
	}
	return out, nil
}

func (r *fakeUserAchievementRepo) Save(ctx context.Context, ua *achievement.UserAchievement, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := uaKey(ua.UserID, ua.AchievementID)
	if existing, ok := r.projections[key]; ok && existing.Version != expectedVersion {
		return shared.ErrVersionConflict
	}
	clone := *ua
	clone.Version = expectedVersion + 1
	r.projections[key] = &clone
	ua.Version = clone.Version
	return nil
}

// fakeStatsProvider returns a fixed counter set, mutable per test.
type fakeStatsProvider struct {
	stats map[achievement.CriteriaType]int
}

func newFakeStatsProvider() *fakeStatsProvider {
	return &fakeStatsProvider{stats: make(map[achievement.CriteriaType]int)}
}

func (p *fakeStatsProvider) Snapshot(ctx context.Context, userID shared.UserID) (achievement.StatSnapshot, error) {
	stats := make(map[achievement.CriteriaType]int, len(p.stats))
	for k, v := range p.stats {
		stats[k] = v
	}
	return achievement.StatSnapshot{Stats: stats}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// analytics, events
// ─────────────────────────────────────────────────────────────────────────────

type fakeAnalyticsRepo struct {
	mu    sync.Mutex
	daily map[string]*analytics.DailyActivity
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{daily: make(map[string]*analytics.DailyActivity)}
}

func dailyKey(userID shared.UserID, dateKey string) string {
	return userID.String() + "/" + dateKey
}

func (r *fakeAnalyticsRepo) LoadDaily(ctx context.Context, userID shared.UserID, dateKey string) (*analytics.DailyActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.daily[dailyKey(userID, dateKey)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *fakeAnalyticsRepo) SaveDaily(ctx context.Context, daily *analytics.DailyActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *daily
	r.daily[dailyKey(daily.UserID, daily.DateKey)] = &clone
	return nil
}

func (r *fakeAnalyticsRepo) ListDailyRange(ctx context.Context, userID shared.UserID, fromKey, toKey string) ([]*analytics.DailyActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*analytics.DailyActivity
	for _, d := range r.daily {
		if d.UserID == userID && d.DateKey >= fromKey && d.DateKey <= toKey {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out, nil
}

func (r *fakeAnalyticsRepo) SaveRollup(ctx context.Context, rollup *analytics.PeriodRollup) error {
	return nil
}

func (r *fakeAnalyticsRepo) LoadRollup(ctx context.Context, userID shared.UserID, period analytics.Period, startKey string) (*analytics.PeriodRollup, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeAnalyticsRepo) ListActiveUsers(ctx context.Context, fromKey, toKey string) ([]shared.UserID, error) {
	return nil, nil
}

// fakePublisher collects published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) typesSeen() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.EventType
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// assessment fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeTestRepo struct {
	tests map[string]*assessment.MockTest
}

func newFakeTestRepo(tests ...*assessment.MockTest) *fakeTestRepo {
	r := &fakeTestRepo{tests: make(map[string]*assessment.MockTest)}
	for _, t := range tests {
		r.tests[t.ID] = t
	}
	return r
}

func (r *fakeTestRepo) GetTest(ctx context.Context, id string) (*assessment.MockTest, error) {
	t, ok := r.tests[id]
	if !ok {
		return nil, shared.ErrMockTestNotFound
	}
	return t, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*assessment.Attempt
}

func (r *fakeAttemptRepo) SaveAttempt(ctx context.Context, attempt *assessment.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *attempt
	r.attempts = append(r.attempts, &clone)
	return nil
}

func (r *fakeAttemptRepo) NextAttemptNumber(ctx context.Context, userID shared.UserID, mockTestID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.UserID == userID && a.MockTestID == mockTestID {
			n++
		}
	}
	return n + 1, nil
}

func (r *fakeAttemptRepo) ListAttempts(ctx context.Context, userID shared.UserID, mockTestID string) ([]*assessment.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assessment.Attempt
	for _, a := range r.attempts {
		if a.UserID == userID && a.MockTestID == mockTestID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (r *fakeAttemptRepo) ListAllGraded(ctx context.Context, mockTestID string) ([]*assessment.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assessment.Attempt
	for _, a := range r.attempts {
		if a.MockTestID == mockTestID && a.IsGraded() {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	passed := make(map[string]bool)
	for _, a := range r.attempts {
		if a.UserID == userID && a.Passed {
			passed[a.MockTestID] = true
		}
	}
	return len(passed), nil
}

type fakeQuizAttemptRepo struct {
	mu       sync.Mutex
	attempts []*assessment.QuizAttempt
}

func (r *fakeQuizAttemptRepo) SaveQuizAttempt(ctx context.Context, attempt *assessment.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *attempt
	r.attempts = append(r.attempts, &clone)
	return nil
}

func (r *fakeQuizAttemptRepo) ListByConcept(ctx context.Context, userID shared.UserID, conceptID shared.ConceptID) ([]*assessment.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assessment.QuizAttempt
	for _, a := range r.attempts {
		if a.UserID == userID && a.ConceptID == conceptID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeQuizAttemptRepo) CountPassedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.UserID == userID && a.Passed {
			n++
		}
	}
	return n, nil
}

// fakeScoreDistribution keeps scores in a slice.
type fakeScoreDistribution struct {
	mu     sync.Mutex
	scores map[string][]float64
}

func newFakeScoreDistribution() *fakeScoreDistribution {
	return &fakeScoreDistribution{scores: make(map[string][]float64)}
}

func (d *fakeScoreDistribution) RecordScore(ctx context.Context, mockTestID, attemptID string, score float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scores[mockTestID] = append(d.scores[mockTestID], score)
	return nil
}

func (d *fakeScoreDistribution) CountLower(ctx context.Context, mockTestID string, score float64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.scores[mockTestID] {
		if s < score {
			n++
		}
	}
	return n, nil
}

func (d *fakeScoreDistribution) CountTotal(ctx context.Context, mockTestID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scores[mockTestID]), nil
}
