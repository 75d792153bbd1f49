package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/application/command"
	"github.com/devprep-hub/devprep-engine/internal/application/query"
	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/domain/assessment"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "DevPrep Progress Engine API",
		"version":     "v1",
		"description": "Progress, mastery and achievement computation for the DevPrep platform",
		"endpoints": map[string]string{
			"health":      "/health",
			"events":      "/api/v1/events",
			"enrollments": "/api/v1/enrollments",
			"attempts":    "/api/v1/attempts",
			"quizzes":     "/api/v1/quizzes",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// applyEventRequest is the ingest payload for one activity event.
type applyEventRequest struct {
	EventID          string    `json:"event_id,omitempty"`
	UserID           string    `json:"user_id"`
	CourseID         string    `json:"course_id"`
	ConceptID        string    `json:"concept_id"`
	TopicID          string    `json:"topic_id"`
	Kind             string    `json:"kind"`
	Completed        bool      `json:"completed"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	OccurredAt       time.Time `json:"occurred_at,omitempty"`
}

// unlockDTO is an unlocked achievement in write responses.
type unlockDTO struct {
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	Step          int    `json:"step,omitempty"`
	XP            int    `json:"xp"`
	Badge         string `json:"badge,omitempty"`
	Completed     bool   `json:"completed"`
}

func toUnlockDTOs(unlocks []achievement.Unlock) []unlockDTO {
	out := make([]unlockDTO, 0, len(unlocks))
	for _, u := range unlocks {
		out = append(out, unlockDTO{
			AchievementID: u.AchievementID,
			Title:         u.Title,
			Step:          u.Step,
			XP:            u.Reward.XP,
			Badge:         u.Reward.Badge,
			Completed:     u.Completed,
		})
	}
	return out
}

// applyEventResponse mirrors everything one event changed.
type applyEventResponse struct {
	UserID            string      `json:"user_id"`
	CourseID          string      `json:"course_id"`
	ConceptProgress   float64     `json:"concept_progress"`
	ConceptCompleted  bool        `json:"concept_completed"`
	OverallProgress   float64     `json:"overall_progress"`
	CourseCompleted   bool        `json:"course_completed"`
	TotalTimeSeconds  int         `json:"total_time_seconds"`
	CompletedConcepts int         `json:"completed_concepts"`
	CurrentStreak     int         `json:"current_streak"`
	LongestStreak     int         `json:"longest_streak"`
	StreakExtended    bool        `json:"streak_extended"`
	StreakBroken      bool        `json:"streak_broken"`
	Unlocks           []unlockDTO `json:"unlocks"`
	AppliedAt         time.Time   `json:"applied_at"`
}

func toApplyEventResponse(result *command.ApplyEventResult) applyEventResponse {
	return applyEventResponse{
		UserID:            result.Snapshot.UserID.String(),
		CourseID:          result.Snapshot.CourseID.String(),
		ConceptProgress:   result.Snapshot.ConceptProgress,
		ConceptCompleted:  result.Snapshot.ConceptCompleted,
		OverallProgress:   result.Snapshot.OverallProgress,
		CourseCompleted:   result.Snapshot.CourseCompleted,
		TotalTimeSeconds:  result.Snapshot.TotalTimeSeconds,
		CompletedConcepts: result.Snapshot.CompletedConcepts,
		CurrentStreak:     result.CurrentStreak,
		LongestStreak:     result.LongestStreak,
		StreakExtended:    result.StreakExtended,
		StreakBroken:      result.StreakBroken,
		Unlocks:           toUnlockDTOs(result.Unlocks),
		AppliedAt:         result.AppliedAt,
	}
}

// handleApplyEvent handles POST /api/v1/events
func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	var req applyEventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.ApplyEventCommand{
		EventID:          req.EventID,
		UserID:           req.UserID,
		CourseID:         req.CourseID,
		ConceptID:        req.ConceptID,
		TopicID:          req.TopicID,
		Kind:             req.Kind,
		Completed:        req.Completed,
		TimeSpentSeconds: req.TimeSpentSeconds,
		OccurredAt:       req.OccurredAt,
		CorrelationID:    getRequestID(r.Context()),
	}

	result, err := s.deps.ApplyEventHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplyEventResponse(result))
}

// enrollRequest is the enrollment payload.
type enrollRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.EnrollCourseHandler.Handle(r.Context(), command.EnrollCourseCommand{
		UserID:   req.UserID,
		CourseID: req.CourseID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"user_id":          result.Enrollment.UserID.String(),
		"course_id":        result.Enrollment.CourseID.String(),
		"status":           string(result.Enrollment.Status),
		"enrolled_at":      result.Enrollment.EnrolledAt,
		"already_enrolled": result.AlreadyEnrolled,
	})
}

// updateTimezoneRequest is the timezone update payload.
type updateTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

func (s *Server) handleUpdateTimezone(w http.ResponseWriter, r *http.Request) {
	var req updateTimezoneRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.UpdateTimezoneHandler.Handle(r.Context(), command.UpdateTimezoneCommand{
		UserID:   r.PathValue("id"),
		Timezone: req.Timezone,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    result.UserID,
		"timezone":   result.Timezone,
		"changed":    result.Changed,
		"updated_at": result.UpdatedAt,
	})
}

// attemptResponseBody is one submitted answer.
type attemptResponseBody struct {
	QuestionID      string   `json:"question_id"`
	SelectedAnswers []string `json:"selected_answers,omitempty"`
	TestCaseResults []struct {
		TestCaseID string `json:"test_case_id"`
		Passed     bool   `json:"passed"`
	} `json:"test_case_results,omitempty"`
}

// submitAttemptRequest is the mock-test submission payload.
type submitAttemptRequest struct {
	UserID      string                `json:"user_id"`
	MockTestID  string                `json:"mock_test_id"`
	Responses   []attemptResponseBody `json:"responses"`
	StartedAt   time.Time             `json:"started_at,omitempty"`
	SubmittedAt time.Time             `json:"submitted_at,omitempty"`
}

func (req *submitAttemptRequest) toResponses() []command.AttemptResponse {
	out := make([]command.AttemptResponse, 0, len(req.Responses))
	for _, r := range req.Responses {
		resp := command.AttemptResponse{
			QuestionID:      r.QuestionID,
			SelectedAnswers: r.SelectedAnswers,
		}
		for _, tc := range r.TestCaseResults {
			resp.TestCaseResults = append(resp.TestCaseResults, assessment.TestCaseResult{
				TestCaseID: tc.TestCaseID,
				Passed:     tc.Passed,
			})
		}
		out = append(out, resp)
	}
	return out
}

// handleSubmitAttempt handles POST /api/v1/attempts
func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitAttemptRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.SubmitAttemptCommand{
		UserID:        req.UserID,
		MockTestID:    req.MockTestID,
		Responses:     req.toResponses(),
		StartedAt:     req.StartedAt,
		SubmittedAt:   req.SubmittedAt,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.SubmitAttemptHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"attempt_id":     result.AttemptID,
		"attempt_number": result.AttemptNumber,
		"total_score":    result.TotalScore,
		"passed":         result.Passed,
		"percentile":     result.Percentile,
		"unlocks":        toUnlockDTOs(result.Unlocks),
	})
}

// submitQuizRequest is the concept-quiz submission payload.
type submitQuizRequest struct {
	UserID           string                `json:"user_id"`
	QuizID           string                `json:"quiz_id"`
	CourseID         string                `json:"course_id"`
	ConceptID        string                `json:"concept_id"`
	QuizTopicID      string                `json:"quiz_topic_id"`
	Responses        []attemptResponseBody `json:"responses"`
	TimeSpentSeconds int                   `json:"time_spent_seconds"`
	SubmittedAt      time.Time             `json:"submitted_at,omitempty"`
}

// handleSubmitQuiz handles POST /api/v1/quizzes
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	responses := make([]command.AttemptResponse, 0, len(req.Responses))
	for _, resp := range req.Responses {
		responses = append(responses, command.AttemptResponse{
			QuestionID:      resp.QuestionID,
			SelectedAnswers: resp.SelectedAnswers,
		})
	}

	cmd := command.SubmitQuizCommand{
		UserID:           req.UserID,
		MockTestID:       req.QuizID,
		CourseID:         req.CourseID,
		ConceptID:        req.ConceptID,
		QuizTopicID:      req.QuizTopicID,
		Responses:        responses,
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      req.SubmittedAt,
		CorrelationID:    getRequestID(r.Context()),
	}

	result, err := s.deps.SubmitQuizHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	body := map[string]interface{}{
		"quiz_attempt_id": result.QuizAttemptID,
		"score_pct":       result.ScorePct,
		"passed":          result.Passed,
	}
	if result.Progress != nil {
		progress := toApplyEventResponse(result.Progress)
		body["progress"] = progress
	}

	writeJSON(w, http.StatusCreated, body)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCourseProgress handles GET /api/v1/users/{id}/courses/{course_id}/progress
func (s *Server) handleGetCourseProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetCourseProgressQuery{
		UserID:   r.PathValue("id"),
		CourseID: r.PathValue("course_id"),
	}

	result, err := s.deps.GetCourseProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStreak handles GET /api/v1/users/{id}/streak
func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	q := query.GetStreakQuery{
		UserID: r.PathValue("id"),
	}

	result, err := s.deps.GetStreakHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAchievements handles GET /api/v1/users/{id}/achievements
func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	q := query.GetAchievementsQuery{
		UserID:       r.PathValue("id"),
		Category:     getQueryParam(r, "category", ""),
		OnlyUnlocked: getQueryParamBool(r, "only_unlocked"),
	}

	result, err := s.deps.GetAchievementsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetPathProgress handles GET /api/v1/users/{id}/paths/{path_id}
func (s *Server) handleGetPathProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetPathProgressQuery{
		UserID: r.PathValue("id"),
		PathID: r.PathValue("path_id"),
	}

	result, err := s.deps.GetPathProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAttemptAnalysis handles GET /api/v1/users/{id}/tests/{test_id}/analysis
func (s *Server) handleGetAttemptAnalysis(w http.ResponseWriter, r *http.Request) {
	q := query.GetAttemptAnalysisQuery{
		UserID:        r.PathValue("id"),
		MockTestID:    r.PathValue("test_id"),
		AttemptNumber: getQueryParamInt(r, "attempt", 0),
	}

	result, err := s.deps.GetAttemptAnalysisHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// BODY DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing the error response
// itself on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	body := io.LimitReader(r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return false
	}

	return true
}
