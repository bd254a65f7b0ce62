package tracking

import (
	"errors"
	"time"

	"github.com/adpulse/dashcore/internal/core/domain"
)

// Stage is an alias for domain.JobStage for internal use.
type Stage = domain.JobStage

// ErrInvalidTransition is returned when an invalid stage transition is attempted.
var ErrInvalidTransition = errors.New("invalid stage transition")

// ValidTransitions defines allowed stage transitions. Key is the current
// stage, value is the list of valid next stages. Completed and failed are
// terminal and have no entry. Failed is reachable from every non-terminal
// stage; forward progress is otherwise one-directional.
var ValidTransitions = map[Stage][]Stage{
	domain.JobStageIdle: {
		domain.JobStageAwaitingQuestions,
		domain.JobStageGenerating,
		domain.JobStageFailed,
	},
	domain.JobStageAwaitingQuestions: {
		domain.JobStageGenerating,
		domain.JobStageFailed,
	},
	domain.JobStageGenerating: {
		domain.JobStageGenerating,
		domain.JobStageCompleted,
		domain.JobStageFailed,
	},
}

// CanTransition checks if a transition from one stage to another is valid.
func CanTransition(from, to Stage) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a stage change with the event data that caused it.
type Transition struct {
	JobID   string
	From    Stage
	To      Stage
	Percent int
	Message string
	At      time.Time
}
