package domain

import "time"

// JobStage represents the lifecycle stage of a tracked backend job.
type JobStage string

const (
	JobStageIdle              JobStage = "idle"
	JobStageAwaitingQuestions JobStage = "awaiting_questions"
	JobStageGenerating        JobStage = "generating"
	JobStageCompleted         JobStage = "completed"
	JobStageFailed            JobStage = "failed"
)

// IsTerminal reports whether no further transitions are possible from the stage.
func (s JobStage) IsTerminal() bool {
	return s == JobStageCompleted || s == JobStageFailed
}

// Job is the client-side view of a server-side long-running operation.
// The id is opaque and server-assigned.
type Job struct {
	ID        string
	OwnerID   string
	Stage     JobStage
	Percent   int // last applied progress, 0-100
	Message   string
	Terminal  bool
	UpdatedAt time.Time
}

// ProgressEvent is a push message carrying job completion progress.
// Percent is assumed monotonic non-decreasing from the server, but a
// single late or duplicate delivery must be tolerated by consumers.
type ProgressEvent struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
	Percent int    `json:"progress"`
	Status  string `json:"status,omitempty"` // "error" marks a failed job
}

// Failed reports whether the event carries the error status flag.
func (e ProgressEvent) Failed() bool {
	return e.Status == "error"
}

// Done reports whether the event signals successful completion.
func (e ProgressEvent) Done() bool {
	return e.Percent >= 100 && !e.Failed()
}
