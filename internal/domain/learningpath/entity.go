// Package learningpath models curated course sequences with
// prerequisites, and derives per-user path progress from course
// progress and mock-test results.
package learningpath

import (
	"errors"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// Domain errors for learningpath package.
var (
	ErrInvalidPathID   = errors.New("learningpath: invalid path ID")
	ErrNoSteps         = errors.New("learningpath: path has no steps")
	ErrDuplicateStep   = errors.New("learningpath: duplicate step ID")
	ErrUnknownStepType = errors.New("learningpath: unknown step type")
	ErrUnknownPrereq   = errors.New("learningpath: prerequisite references unknown step")
	ErrForwardPrereq   = errors.New("learningpath: prerequisite must precede its step")
	ErrMissingRef      = errors.New("learningpath: step has no referenced resource")
)

// StepType discriminates what a path step points at.
type StepType string

const (
	StepCourse   StepType = "course"
	StepMockTest StepType = "mock_test"
)

// IsValid reports whether the step type is known.
func (t StepType) IsValid() bool {
	return t == StepCourse || t == StepMockTest
}

// Step is one node of a learning path. Prerequisites reference
// earlier steps of the same path by ID.
type Step struct {
	ID            string          `json:"id"`
	Order         int             `json:"order"`
	Type          StepType        `json:"type"`
	CourseID      shared.CourseID `json:"course_id,omitempty"`
	MockTestID    string          `json:"mock_test_id,omitempty"`
	Prerequisites []string        `json:"prerequisites,omitempty"`
}

// Path is an immutable curated sequence of steps.
type Path struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Validate checks the structural invariants: steps exist, IDs are
// unique, references are filled, and prerequisites point strictly
// backwards so the dependency graph is acyclic by construction.
func (p *Path) Validate() error {
	if p.ID == "" {
		return ErrInvalidPathID
	}
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	position := make(map[string]int, len(p.Steps))
	for i, step := range p.Steps {
		if _, dup := position[step.ID]; dup {
			return ErrDuplicateStep
		}
		position[step.ID] = i
		if !step.Type.IsValid() {
			return ErrUnknownStepType
		}
		switch step.Type {
		case StepCourse:
			if step.CourseID.IsEmpty() {
				return ErrMissingRef
			}
		case StepMockTest:
			if step.MockTestID == "" {
				return ErrMissingRef
			}
		}
	}
	for i, step := range p.Steps {
		for _, prereq := range step.Prerequisites {
			pos, ok := position[prereq]
			if !ok {
				return ErrUnknownPrereq
			}
			if pos >= i {
				return ErrForwardPrereq
			}
		}
	}
	return nil
}

// StepStatus is the derived per-user state of one step.
type StepStatus string

const (
	StepLocked     StepStatus = "locked"
	StepAvailable  StepStatus = "available"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// CompletionLookup answers whether the resource behind a step is
// completed or started for a user. Implemented over the progress and
// assessment repositories.
type CompletionLookup interface {
	CourseState(courseID shared.CourseID) (started, completed bool)
	MockTestPassed(mockTestID string) bool
}

// StepProgress is the derived status of one step for one user.
type StepProgress struct {
	StepID string     `json:"step_id"`
	Status StepStatus `json:"status"`
}

// PathProgress is the derived view of a whole path for one user.
// It is never persisted: course progress and test results are the
// source of truth, the path view is recomputed per read.
type PathProgress struct {
	PathID          string         `json:"path_id"`
	Steps           []StepProgress `json:"steps"`
	CompletedSteps  int            `json:"completed_steps"`
	OverallProgress float64        `json:"overall_progress"` // 0-100
	Completed       bool           `json:"completed"`
}

// DeriveProgress computes the per-step statuses for a user:
//   - a step with an unmet prerequisite is locked;
//   - an unlocked, untouched step is available;
//   - a started course step is in_progress;
//   - a completed course or passed mock test completes the step.
func DeriveProgress(path *Path, lookup CompletionLookup) PathProgress {
	result := PathProgress{PathID: path.ID, Steps: make([]StepProgress, 0, len(path.Steps))}
	completed := make(map[string]bool, len(path.Steps))

	for _, step := range path.Steps {
		status := deriveStepStatus(step, lookup, completed)
		if status == StepCompleted {
			completed[step.ID] = true
			result.CompletedSteps++
		}
		result.Steps = append(result.Steps, StepProgress{StepID: step.ID, Status: status})
	}

	if len(path.Steps) > 0 {
		result.OverallProgress = 100 * float64(result.CompletedSteps) / float64(len(path.Steps))
	}
	result.Completed = result.CompletedSteps == len(path.Steps)
	return result
}

func deriveStepStatus(step Step, lookup CompletionLookup, done map[string]bool) StepStatus {
	// Completion is checked before prerequisites: retroactively added
	// prerequisites must not hide work a user already finished.
	switch step.Type {
	case StepCourse:
		started, finished := lookup.CourseState(step.CourseID)
		if finished {
			return StepCompleted
		}
		if locked(step, done) {
			return StepLocked
		}
		if started {
			return StepInProgress
		}
	case StepMockTest:
		if lookup.MockTestPassed(step.MockTestID) {
			return StepCompleted
		}
		if locked(step, done) {
			return StepLocked
		}
	}
	return StepAvailable
}

func locked(step Step, done map[string]bool) bool {
	for _, prereq := range step.Prerequisites {
		if !done[prereq] {
			return true
		}
	}
	return false
}
