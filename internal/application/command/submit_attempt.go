package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ATTEMPT COMMAND
// Grades one mock test attempt: objective answers by exact set match,
// coding answers by test case conjunction, then ranks the score against
// all prior attempts on the same test.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAttemptCommand carries a finished mock test attempt.
type SubmitAttemptCommand struct {
	// UserID is the learner submitting the attempt.
	UserID string

	// MockTestID identifies the mock test.
	MockTestID string

	// Responses maps question IDs to the submitted answers.
	Responses []AttemptResponse

	// StartedAt is when the attempt began. Optional.
	StartedAt time.Time

	// SubmittedAt is the submission time (defaults to now).
	SubmittedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// AttemptResponse is one submitted answer.
type AttemptResponse struct {
	QuestionID      string
	SelectedAnswers []string
	TestCaseResults []assessment.TestCaseResult
}

// Validate validates the command.
func (c SubmitAttemptCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("assessment", "SubmitAttempt", shared.ErrInvalidID,
			"user id is required")
	}
	if c.MockTestID == "" {
		return shared.NewDomainError("assessment", "SubmitAttempt", shared.ErrInvalidID,
			"mock test id is required")
	}
	for _, r := range c.Responses {
		if r.QuestionID == "" {
			return shared.NewDomainError("assessment", "SubmitAttempt", shared.ErrInvalidID,
				"response question id is required")
		}
	}
	return nil
}

// SubmitAttemptResult is the graded outcome.
type SubmitAttemptResult struct {
	AttemptID     string
	AttemptNumber int
	TotalScore    float64
	Passed        bool
	Percentile    float64
	Responses     []assessment.Response
	Unlocks       []achievement.Unlock
	Events        []shared.Event
}

// SubmitAttemptHandler handles the SubmitAttempt command.
type SubmitAttemptHandler struct {
	tests       assessment.TestRepository
	attempts    assessment.AttemptRepository
	scores      assessment.ScoreDistribution
	structures  course.StructureProvider
	evaluator   *achievement.Evaluator
	userAchRepo achievement.UserRepository
	stats       achievement.StatsProvider
	publisher   shared.EventPublisher
	log         *logger.Logger
}

// NewSubmitAttemptHandler creates a new SubmitAttemptHandler.
func NewSubmitAttemptHandler(
	tests assessment.TestRepository,
	attempts assessment.AttemptRepository,
	scores assessment.ScoreDistribution,
	structures course.StructureProvider,
	evaluator *achievement.Evaluator,
	userAchRepo achievement.UserRepository,
	stats achievement.StatsProvider,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *SubmitAttemptHandler {
	return &SubmitAttemptHandler{
		tests:       tests,
		attempts:    attempts,
		scores:      scores,
		structures:  structures,
		evaluator:   evaluator,
		userAchRepo: userAchRepo,
		stats:       stats,
		publisher:   publisher,
		log:         log,
	}
}

// Handle grades and persists the attempt. The percentile ranks against
// attempts graded strictly before this one, so the first attempt on a
// fresh test always lands at 100.
func (h *SubmitAttemptHandler) Handle(ctx context.Context, cmd SubmitAttemptCommand) (*SubmitAttemptResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.SubmittedAt.IsZero() {
		cmd.SubmittedAt = time.Now()
	}

	test, err := h.tests.GetTest(ctx, cmd.MockTestID)
	if err != nil {
		return nil, err
	}

	attemptNumber, err := h.attempts.NextAttemptNumber(ctx, shared.UserID(cmd.UserID), cmd.MockTestID)
	if err != nil {
		return nil, err
	}
	if test.MaxAttempts > 0 && attemptNumber > test.MaxAttempts {
		return nil, shared.NewDomainError("assessment", "SubmitAttempt", shared.ErrValidation,
			"maximum attempts exceeded")
	}

	attempt := &assessment.Attempt{
		ID:            uuid.NewString(),
		UserID:        shared.UserID(cmd.UserID),
		MockTestID:    cmd.MockTestID,
		AttemptNumber: attemptNumber,
		StartedAt:     cmd.StartedAt,
	}
	for _, r := range cmd.Responses {
		attempt.Responses = append(attempt.Responses, assessment.Response{
			QuestionID:      r.QuestionID,
			SelectedAnswers: r.SelectedAnswers,
			TestCaseResults: r.TestCaseResults,
		})
	}

	if err := attempt.Grade(test, cmd.SubmittedAt); err != nil {
		return nil, err
	}

	// Rank before recording so the attempt is not its own competitor.
	lower, err := h.scores.CountLower(ctx, cmd.MockTestID, attempt.TotalScore)
	if err != nil {
		return nil, err
	}
	total, err := h.scores.CountTotal(ctx, cmd.MockTestID)
	if err != nil {
		return nil, err
	}
	attempt.Percentile = assessment.PercentileFromCounts(lower, total)

	if err := h.attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if err := h.scores.RecordScore(ctx, cmd.MockTestID, attempt.ID, attempt.TotalScore); err != nil {
		h.log.Warn("failed to record score in distribution",
			logger.String("mock_test_id", cmd.MockTestID),
			logger.Err(err))
	}

	result := &SubmitAttemptResult{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		TotalScore:    attempt.TotalScore,
		Passed:        attempt.Passed,
		Percentile:    attempt.Percentile,
		Responses:     attempt.Responses,
	}

	graded := shared.NewAttemptGradedEvent(
		cmd.UserID, cmd.MockTestID, attempt.AttemptNumber,
		attempt.TotalScore, attempt.Passed, attempt.Percentile,
	)
	graded.BaseEvent = graded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	result.Events = append(result.Events, graded)

	if attempt.Passed {
		if err := h.checkAchievements(ctx, test, attempt, result, cmd.CorrelationID); err != nil {
			// Counters are rebuilt from attempts on the next pass, so
			// a failed evaluation only delays the unlock.
			h.log.Warn("achievement evaluation failed after attempt",
				logger.UserID(cmd.UserID),
				logger.Err(err))
		}
	}

	for _, ev := range result.Events {
		if err := h.publisher.Publish(ev); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err))
		}
	}
	return result, nil
}

// checkAchievements evaluates mock-test criteria after a passed attempt.
func (h *SubmitAttemptHandler) checkAchievements(
	ctx context.Context,
	test *assessment.MockTest,
	attempt *assessment.Attempt,
	result *SubmitAttemptResult,
	correlationID string,
) error {
	snapshot, err := h.stats.Snapshot(ctx, attempt.UserID)
	if err != nil {
		return err
	}
	snapshot.UserID = attempt.UserID
	// SubmittedAt is set by Grade before achievements are checked.
	snapshot.At = *attempt.SubmittedAt
	if snapshot.Fields == nil {
		snapshot.Fields = make(map[string]achievement.FieldValue)
	}
	if !test.CourseID.IsEmpty() {
		structure, err := h.structures.GetStructure(ctx, test.CourseID)
		if err == nil {
			snapshot.Fields["course_level"] = achievement.StringField(string(structure.Level))
		}
	}

	projections, err := h.userAchRepo.LoadAll(ctx, attempt.UserID)
	if err != nil {
		return err
	}

	unlocks, touched := h.evaluator.Evaluate(projections, snapshot)
	result.Unlocks = unlocks

	for _, ua := range touched {
		if err := h.userAchRepo.Save(ctx, ua, ua.Version); err != nil {
			if shared.IsVersionConflict(err) {
				continue
			}
			return err
		}
	}
	for _, unlock := range unlocks {
		ev := shared.NewAchievementUnlockedEvent(
			attempt.UserID.String(), unlock.AchievementID, unlock.Title,
			unlock.Step, unlock.Reward.XP, unlock.Reward.Badge,
		)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
		result.Events = append(result.Events, ev)
	}
	return nil
}
