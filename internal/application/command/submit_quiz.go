package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ COMMAND
// Grades a concept-level quiz. A passed quiz doubles as the completion
// signal for its quiz topic, so the graded result is turned into an
// activity event and pushed through the regular apply pipeline.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizCommand carries a finished concept quiz.
type SubmitQuizCommand struct {
	// UserID is the learner submitting the quiz.
	UserID string

	// MockTestID identifies the quiz definition (quizzes reuse the
	// mock test format with objective questions only).
	MockTestID string

	// CourseID, ConceptID, QuizTopicID locate the quiz in the course tree.
	CourseID    string
	ConceptID   string
	QuizTopicID string

	// Responses maps question IDs to selected answers.
	Responses []AttemptResponse

	// TimeSpentSeconds spent on the quiz.
	TimeSpentSeconds int

	// SubmittedAt defaults to now.
	SubmittedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitQuizCommand) Validate() error {
	if c.UserID == "" || c.MockTestID == "" {
		return shared.NewDomainError("assessment", "SubmitQuiz", shared.ErrInvalidID,
			"user id and quiz id are required")
	}
	if c.CourseID == "" || c.ConceptID == "" || c.QuizTopicID == "" {
		return shared.NewDomainError("assessment", "SubmitQuiz", shared.ErrInvalidID,
			"quiz position in the course tree is required")
	}
	if c.TimeSpentSeconds < 0 {
		return shared.NewDomainError("assessment", "SubmitQuiz", shared.ErrNegativeValue,
			"time spent cannot be negative")
	}
	return nil
}

// SubmitQuizResult is the graded quiz outcome plus the progress state
// after the completion event (when the quiz was passed).
type SubmitQuizResult struct {
	QuizAttemptID string
	ScorePct      float64
	Passed        bool

	// Progress is the state after the quiz activity was applied. A
	// failed quiz records time spent but never completes the topic.
	Progress *ApplyEventResult

	Events []shared.Event
}

// SubmitQuizHandler handles the SubmitQuiz command.
type SubmitQuizHandler struct {
	tests       assessment.TestRepository
	quizzes     assessment.QuizAttemptRepository
	applyEvents *ApplyEventHandler
	publisher   shared.EventPublisher
	log         *logger.Logger
}

// NewSubmitQuizHandler creates a new SubmitQuizHandler.
func NewSubmitQuizHandler(
	tests assessment.TestRepository,
	quizzes assessment.QuizAttemptRepository,
	applyEvents *ApplyEventHandler,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *SubmitQuizHandler {
	return &SubmitQuizHandler{
		tests:       tests,
		quizzes:     quizzes,
		applyEvents: applyEvents,
		publisher:   publisher,
		log:         log,
	}
}

// Handle grades the quiz and, on a pass, applies the topic completion.
// On a fail only the time spent flows into progress, keeping topic
// completion monotonic.
func (h *SubmitQuizHandler) Handle(ctx context.Context, cmd SubmitQuizCommand) (*SubmitQuizResult, error) {
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

	attempt := &assessment.Attempt{
		ID:         uuid.NewString(),
		UserID:     shared.UserID(cmd.UserID),
		MockTestID: cmd.MockTestID,
	}
	for _, r := range cmd.Responses {
		attempt.Responses = append(attempt.Responses, assessment.Response{
			QuestionID:      r.QuestionID,
			SelectedAnswers: r.SelectedAnswers,
		})
	}

	quizAttempt, err := assessment.GradeQuiz(
		test, attempt,
		shared.CourseID(cmd.CourseID),
		shared.ConceptID(cmd.ConceptID),
		shared.TopicID(cmd.QuizTopicID),
		cmd.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	quizAttempt.TimeSpentSeconds = cmd.TimeSpentSeconds

	if err := h.quizzes.SaveQuizAttempt(ctx, quizAttempt); err != nil {
		return nil, err
	}

	result := &SubmitQuizResult{
		QuizAttemptID: quizAttempt.ID,
		ScorePct:      quizAttempt.ScorePct,
		Passed:        quizAttempt.Passed,
	}

	progress, err := h.applyEvents.Handle(ctx, ApplyEventCommand{
		EventID:          uuid.NewString(),
		UserID:           cmd.UserID,
		CourseID:         cmd.CourseID,
		ConceptID:        cmd.ConceptID,
		TopicID:          cmd.QuizTopicID,
		Kind:             "quiz",
		Completed:        quizAttempt.Passed,
		TimeSpentSeconds: cmd.TimeSpentSeconds,
		OccurredAt:       cmd.SubmittedAt,
		CorrelationID:    cmd.CorrelationID,
	})
	if err != nil {
		return nil, err
	}
	result.Progress = progress

	if quizAttempt.Passed {
		ev := shared.NewQuizPassedEvent(
			cmd.UserID, cmd.CourseID, cmd.ConceptID, cmd.QuizTopicID,
			quizAttempt.ScorePct,
		)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, ev)
		if err := h.publisher.Publish(ev); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err))
		}
	}
	return result, nil
}
