package grading

import (
	"math"
	"time"
)

// Statuses
const (
	StatusGrading   = "grading"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const maxProgress = 100

// Failure reasons
const (
	ReasonTimedOut    = "grading timed out"
	ReasonCancelled   = "grading cancelled"
	ReasonUnavailable = "grading unavailable"
)

// Job tracks the grading of one paper. Records are only mutated through Repository.Update.
type Job struct {
	ID          string     `json:"id"`
	PaperID     string     `json:"paperId"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IsTerminal reports whether the job reached completed or failed.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Clone returns a copy that shares no memory with j.
func (j Job) Clone() Job {
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	return j
}

// Advance adds increment to the progress. Reaching 100 completes the job; below that the progress is
// rounded but kept under 100 and never decreases.
func (j *Job) Advance(increment float64, now time.Time) {
	if j.IsTerminal() {
		return
	}
	next := float64(j.Progress) + increment
	if next >= maxProgress {
		j.Progress = maxProgress
		j.Status = StatusCompleted
		j.setCompletedAt(now)
		return
	}

	p := int(math.Round(next))
	if p >= maxProgress {
		p = maxProgress - 1
	}
	if p > j.Progress {
		j.Progress = p
	}
}

// Fail moves an active job to failed with reason. Progress is left as is.
func (j *Job) Fail(reason string, now time.Time) {
	if j.IsTerminal() {
		return
	}
	j.Status = StatusFailed
	j.Error = reason
	j.setCompletedAt(now)
}

func (j *Job) setCompletedAt(now time.Time) {
	t := now.UTC()
	j.CompletedAt = &t
}

// StartResult is returned when a grading job is started.
type StartResult struct {
	Job           Job
	EstimatedTime time.Duration
}
