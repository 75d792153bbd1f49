// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/progress"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
	"github.com/devprep-hub/devprep-engine/pkg/retry"
	"github.com/devprep-hub/devprep-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY EVENT COMMAND
// The main write path of the engine: one activity event flows through
// ingest validation, progress aggregation, streak tracking, achievement
// evaluation and daily analytics.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyEventCommand carries one raw activity event candidate.
type ApplyEventCommand struct {
	// EventID identifies the event for redelivery dedup. Optional.
	EventID string

	// UserID is the learner the activity belongs to.
	UserID string

	// CourseID, ConceptID, TopicID locate the activity in the course tree.
	CourseID  string
	ConceptID string
	TopicID   string

	// Kind is the activity type: video, article, coding, quiz.
	Kind string

	// Completed marks whether this event completes the topic.
	Completed bool

	// TimeSpentSeconds is the time spent in this activity.
	TimeSpentSeconds int

	// OccurredAt is when the activity happened (defaults to now).
	OccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape. Structural existence of the
// (course, concept, topic) triple is checked against the course tree
// inside Handle.
func (c ApplyEventCommand) Validate() error {
	event := c.toDomain()
	return event.Validate()
}

// toDomain maps the command onto the domain event type.
func (c ApplyEventCommand) toDomain() progress.ActivityEvent {
	return progress.ActivityEvent{
		EventID:          shared.EventID(c.EventID),
		UserID:           shared.UserID(c.UserID),
		CourseID:         shared.CourseID(c.CourseID),
		ConceptID:        shared.ConceptID(c.ConceptID),
		TopicID:          shared.TopicID(c.TopicID),
		Kind:             progress.ActivityKind(c.Kind),
		Completed:        c.Completed,
		TimeSpentSeconds: c.TimeSpentSeconds,
		OccurredAt:       c.OccurredAt,
	}
}

// ApplyEventResult describes everything the event changed.
type ApplyEventResult struct {
	// Snapshot is the progress state after application.
	Snapshot progress.Snapshot

	// CurrentStreak and LongestStreak after the event.
	CurrentStreak int
	LongestStreak int

	// StreakExtended / StreakBroken describe the streak transition.
	StreakExtended bool
	StreakBroken   bool

	// Unlocks are newly unlocked achievements or steps, in order.
	Unlocks []achievement.Unlock

	// Events are the domain events emitted by this application.
	Events []shared.Event

	// AppliedAt is the normalized event time.
	AppliedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyEventHandler drives the whole apply cycle for one event.
// Per-(user, course) mutations are serialized through optimistic
// locking: on a version conflict the cycle reloads and replays, which
// is safe because every mutation is idempotent or monotonic.
type ApplyEventHandler struct {
	progressRepo  progress.Repository
	streakRepo    progress.StreakRepository
	structures    course.StructureProvider
	enrollments   course.EnrollmentRepository
	evaluator     *achievement.Evaluator
	userAchRepo   achievement.UserRepository
	stats         achievement.StatsProvider
	analyticsRepo analytics.Repository
	publisher     shared.EventPublisher
	log           *logger.Logger

	retrier          *retry.Retrier
	structureTimeout time.Duration
}

// ApplyEventHandlerConfig contains configuration for the handler.
type ApplyEventHandlerConfig struct {
	// MaxRetries bounds apply-cycle replays on version conflicts.
	MaxRetries int

	// StructureTimeout bounds the course-structure lookup. On expiry
	// the single event is aborted, never the aggregate state.
	StructureTimeout time.Duration
}

// DefaultApplyEventHandlerConfig returns default configuration.
func DefaultApplyEventHandlerConfig() ApplyEventHandlerConfig {
	return ApplyEventHandlerConfig{
		MaxRetries:       3,
		StructureTimeout: 2 * time.Second,
	}
}

// NewApplyEventHandler creates a new ApplyEventHandler.
func NewApplyEventHandler(
	progressRepo progress.Repository,
	streakRepo progress.StreakRepository,
	structures course.StructureProvider,
	enrollments course.EnrollmentRepository,
	evaluator *achievement.Evaluator,
	userAchRepo achievement.UserRepository,
	stats achievement.StatsProvider,
	analyticsRepo analytics.Repository,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config ApplyEventHandlerConfig,
) *ApplyEventHandler {
	if config.MaxRetries == 0 {
		config = DefaultApplyEventHandlerConfig()
	}
	return &ApplyEventHandler{
		progressRepo:  progressRepo,
		streakRepo:    streakRepo,
		structures:    structures,
		enrollments:   enrollments,
		evaluator:     evaluator,
		userAchRepo:   userAchRepo,
		stats:         stats,
		analyticsRepo: analyticsRepo,
		publisher:     publisher,
		log:           log,
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxRetries),
			retry.WithRetryIf(shared.IsVersionConflict),
		),
		structureTimeout: config.StructureTimeout,
	}
}

// Handle executes the apply cycle. The cycle is all-or-nothing for the
// progress document itself; streaks, achievements and analytics follow
// it as separate documents with their own optimistic retries.
func (h *ApplyEventHandler) Handle(ctx context.Context, cmd ApplyEventCommand) (*ApplyEventResult, error) {
	event := cmd.toDomain().Normalize(time.Now())
	if err := event.Validate(); err != nil {
		return nil, err
	}

	structure, err := h.fetchStructure(ctx, event.CourseID)
	if err != nil {
		return nil, err
	}
	if err := event.ValidateAgainst(structure); err != nil {
		return nil, err
	}

	enrollment, err := h.enrollments.Get(ctx, event.UserID, event.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsActive() {
		return nil, shared.ErrNotEnrolled
	}

	result := &ApplyEventResult{AppliedAt: event.OccurredAt}

	// 1. Progress document: CAS loop over load → apply → save.
	doc, changes, err := h.applyProgress(ctx, event, structure)
	if err != nil {
		return nil, err
	}
	result.Snapshot = doc.BuildSnapshot(event, changes)
	h.collectProgressEvents(result, event, cmd.CorrelationID)

	if changes.CourseCompleted {
		enrollment.MarkCompleted(event.OccurredAt)
		if err := h.enrollments.Save(ctx, enrollment); err != nil {
			h.log.Warn("failed to mark enrollment completed",
				logger.UserID(event.UserID.String()),
				logger.CourseID(event.CourseID.String()),
				logger.Err(err))
		}
	}

	// 2. Streak: one idempotent mutation per calendar day.
	if err := h.updateStreak(ctx, event, result, cmd.CorrelationID); err != nil {
		return nil, err
	}

	// 3. Achievements: evaluate criteria against the fresh counters.
	if err := h.evaluateAchievements(ctx, event, structure, result, cmd.CorrelationID); err != nil {
		return nil, err
	}

	// 4. Daily analytics. Non-critical: a failed rollup write never
	// fails the event. Redelivered events are already folded in.
	if !changes.Duplicate {
		h.recordDailyActivity(ctx, event, changes)
	}

	for _, domainEvent := range result.Events {
		if err := h.publisher.Publish(domainEvent); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(domainEvent.EventType())),
				logger.Err(err))
		}
	}
	return result, nil
}

// fetchStructure resolves the course tree under a bounded timeout.
func (h *ApplyEventHandler) fetchStructure(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	ctx, cancel := context.WithTimeout(ctx, h.structureTimeout)
	defer cancel()

	structure, err := h.structures.GetStructure(ctx, courseID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, shared.WrapError("progress", "ApplyEvent", shared.ErrTimeout,
				"course structure lookup timed out", err)
		}
		return nil, err
	}
	return structure, nil
}

// applyProgress runs the load/apply/save cycle with bounded replays on
// version conflicts. Exhausted retries surface as ErrConcurrency.
func (h *ApplyEventHandler) applyProgress(
	ctx context.Context,
	event progress.ActivityEvent,
	structure *course.Structure,
) (*progress.CourseProgress, progress.ChangeSet, error) {
	var doc *progress.CourseProgress
	var changes progress.ChangeSet

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		loaded, err := h.progressRepo.Load(ctx, event.UserID, event.CourseID)
		switch {
		case err == nil:
			doc = loaded
		case shared.IsNotFound(err):
			doc = progress.NewCourseProgress(event.UserID, event.CourseID)
		default:
			return retry.Permanent(err)
		}

		changes, err = doc.ApplyEvent(event, structure)
		if err != nil {
			return retry.Permanent(err)
		}

		if err := h.progressRepo.Save(ctx, doc, doc.Version); err != nil {
			if shared.IsVersionConflict(err) {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		if shared.IsVersionConflict(err) {
			return nil, changes, shared.WrapError("progress", "ApplyEvent", shared.ErrConcurrency,
				"apply cycle lost the version race repeatedly", err)
		}
		return nil, changes, err
	}
	return doc, changes, nil
}

// collectProgressEvents appends domain events for the progress changes.
func (h *ApplyEventHandler) collectProgressEvents(result *ApplyEventResult, event progress.ActivityEvent, correlationID string) {
	changes := result.Snapshot.Changes

	updated := shared.NewProgressUpdatedEvent(
		event.UserID.String(), event.CourseID.String(),
		event.ConceptID.String(), event.TopicID.String(),
		result.Snapshot.OverallProgress,
	)
	updated.BaseEvent = updated.BaseEvent.WithCorrelationID(correlationID)
	result.Events = append(result.Events, updated)

	if changes.TopicCompleted {
		result.Events = append(result.Events, shared.NewTopicCompletedEvent(
			event.UserID.String(), event.CourseID.String(),
			event.ConceptID.String(), event.TopicID.String(), event.Kind.String(),
		))
	}
	if changes.ConceptCompleted {
		result.Events = append(result.Events, shared.NewConceptCompletedEvent(
			event.UserID.String(), event.CourseID.String(), event.ConceptID.String(),
			result.Snapshot.ConceptProgress, "",
		))
	}
	if changes.CourseCompleted {
		result.Events = append(result.Events, shared.NewCourseCompletedEvent(
			event.UserID.String(), event.CourseID.String(),
		))
	}
}

// updateStreak records the activity day, creating the streak document
// lazily on first activity.
func (h *ApplyEventHandler) updateStreak(
	ctx context.Context,
	event progress.ActivityEvent,
	result *ApplyEventResult,
	correlationID string,
) error {
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		streak, err := h.streakRepo.Load(ctx, event.UserID)
		switch {
		case err == nil:
		case shared.IsNotFound(err):
			streak = progress.NewStreak(event.UserID, "")
		default:
			return retry.Permanent(err)
		}

		change := streak.RecordActivity(event.OccurredAt)
		result.CurrentStreak = streak.CurrentStreak
		result.LongestStreak = streak.LongestStreak
		result.StreakExtended = change.Extended
		result.StreakBroken = change.Broken

		if !change.Extended && !change.Broken {
			// Same-day repeat, nothing to persist.
			return nil
		}

		if err := h.streakRepo.Save(ctx, streak, streak.Version); err != nil {
			if shared.IsVersionConflict(err) {
				return err
			}
			return retry.Permanent(err)
		}

		if change.Extended {
			ev := shared.NewStreakExtendedEvent(event.UserID.String(), streak.CurrentStreak, streak.LongestStreak)
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
			result.Events = append(result.Events, ev)
		}
		if change.Broken {
			result.Events = append(result.Events,
				shared.NewStreakBrokenEvent(event.UserID.String(), change.PreviousStreak, change.DaysMissed))
		}
		return nil
	})
	if err != nil && shared.IsVersionConflict(err) {
		return shared.WrapError("progress", "UpdateStreak", shared.ErrConcurrency,
			"streak update lost the version race repeatedly", err)
	}
	return err
}

// evaluateAchievements runs the criteria evaluator and persists the
// touched projections.
func (h *ApplyEventHandler) evaluateAchievements(
	ctx context.Context,
	event progress.ActivityEvent,
	structure *course.Structure,
	result *ApplyEventResult,
	correlationID string,
) error {
	snapshot, err := h.stats.Snapshot(ctx, event.UserID)
	if err != nil {
		return err
	}
	snapshot.UserID = event.UserID
	snapshot.At = event.OccurredAt
	if snapshot.Stats == nil {
		snapshot.Stats = make(map[achievement.CriteriaType]int)
	}
	snapshot.Stats[achievement.CriteriaStreakDays] = result.CurrentStreak
	if snapshot.Fields == nil {
		snapshot.Fields = make(map[string]achievement.FieldValue)
	}
	snapshot.Fields["course_level"] = achievement.StringField(string(structure.Level))

	projections, err := h.userAchRepo.LoadAll(ctx, event.UserID)
	if err != nil {
		return err
	}

	unlocks, touched := h.evaluator.Evaluate(projections, snapshot)
	result.Unlocks = unlocks

	for id, ua := range touched {
		if err := h.userAchRepo.Save(ctx, ua, ua.Version); err != nil {
			// The evaluator is idempotent, so a lost race here means a
			// concurrent cycle already recorded the same transition.
			if shared.IsVersionConflict(err) {
				h.log.Debug("achievement projection raced, skipping",
					logger.UserID(event.UserID.String()),
					logger.AchievementID(id))
				continue
			}
			return err
		}
	}

	for _, unlock := range unlocks {
		ev := shared.NewAchievementUnlockedEvent(
			event.UserID.String(), unlock.AchievementID, unlock.Title,
			unlock.Step, unlock.Reward.XP, unlock.Reward.Badge,
		)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
		result.Events = append(result.Events, ev)
	}
	return nil
}

// recordDailyActivity folds the event into the daily analytics record.
func (h *ApplyEventHandler) recordDailyActivity(
	ctx context.Context,
	event progress.ActivityEvent,
	changes progress.ChangeSet,
) {
	loc := time.UTC
	dateKey := timeutil.DateKey(event.OccurredAt, loc)

	daily, err := h.analyticsRepo.LoadDaily(ctx, event.UserID, dateKey)
	if err != nil {
		if !shared.IsNotFound(err) {
			h.log.Warn("failed to load daily analytics", logger.Err(err))
			return
		}
		daily = analytics.NewDailyActivity(event.UserID, event.OccurredAt, loc)
	}

	// Achievement XP lands in analytics through the unlock flow, not
	// here, so an unlock is never counted twice.
	daily.Apply(analytics.ActivityDelta{
		TopicCompleted:   changes.TopicCompleted,
		ProblemSolved:    changes.TopicCompleted && event.Kind == progress.ActivityCoding,
		QuizPassed:       changes.TopicCompleted && event.Kind == progress.ActivityQuiz,
		TimeSpentSeconds: event.TimeSpentSeconds,
	})

	if err := h.analyticsRepo.SaveDaily(ctx, daily); err != nil {
		h.log.Warn("failed to save daily analytics",
			logger.UserID(event.UserID.String()),
			logger.Err(err))
	}
}
