package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an optimization job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning, JobStatusFailed},
	JobStatusRunning: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OptimizationResult is the engine output stored on a completed job.
type OptimizationResult struct {
	Scenarios       []Scenario       `json:"scenarios"`
	Simulation      SimulationResult `json:"simulation"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
}

// Recommended returns the top-ranked scenario.
func (r *OptimizationResult) Recommended() (Scenario, bool) {
	if r == nil || len(r.Scenarios) == 0 {
		return Scenario{}, false
	}
	return r.Scenarios[0], true
}

// OptimizationJob is the persisted record of one job-mode optimization
type OptimizationJob struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	UserID          string              `db:"user_id" json:"user_id" validate:"required"`
	Status          JobStatus           `db:"status" json:"status"`
	SafePicks       []string            `db:"safe_picks" json:"safe_picks"`
	UnsafePicks     []string            `db:"unsafe_picks" json:"unsafe_picks"`
	Constraints     Constraints         `db:"constraints" json:"constraints"`
	TargetScore     int                 `db:"target_score" json:"target_score"`
	Result          *OptimizationResult `db:"result" json:"result,omitempty"`
	ErrorMessage    string              `db:"error_message" json:"error_message,omitempty"`
	ErrorKind       string              `db:"error_kind" json:"error_kind,omitempty"`
	ExecutionTimeMs *int64              `db:"execution_time_ms" json:"execution_time_ms,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	StartedAt       *time.Time          `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
}

// NewOptimizationJob creates a pending job.
func NewOptimizationJob(userID string, safe, unsafe []string, constraints Constraints, targetScore int, now time.Time) *OptimizationJob {
	return &OptimizationJob{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      JobStatusPending,
		SafePicks:   append([]string{}, safe...),
		UnsafePicks: append([]string{}, unsafe...),
		Constraints: constraints,
		TargetScore: targetScore,
		CreatedAt:   now,
	}
}

// MatchIDs returns the safe and unsafe match IDs of the job's input snapshot.
func (j *OptimizationJob) MatchIDs() []string {
	ids := make([]string, 0, len(j.SafePicks)+len(j.UnsafePicks))
	ids = append(ids, j.SafePicks...)
	return append(ids, j.UnsafePicks...)
}

// Start moves the job from pending to running.
func (j *OptimizationJob) Start(now time.Time) error {
	if err := j.transition(JobStatusRunning); err != nil {
		return err
	}
	j.StartedAt = &now
	return nil
}

// Complete stores the result and marks the job completed.
func (j *OptimizationJob) Complete(result *OptimizationResult, now time.Time) error {
	if err := j.transition(JobStatusCompleted); err != nil {
		return err
	}
	j.Result = result
	j.finish(now)
	return nil
}

// Fail records the error and marks the job failed.
func (j *OptimizationJob) Fail(cause error, now time.Time) error {
	if err := j.transition(JobStatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = cause.Error()
	j.ErrorKind = KindOf(cause)
	j.finish(now)
	return nil
}

// Cancel marks a running job cancelled.
func (j *OptimizationJob) Cancel(cause error, now time.Time) error {
	if err := j.transition(JobStatusCancelled); err != nil {
		return err
	}
	j.ErrorKind = KindOf(Cancelled(cause))
	if cause != nil {
		j.ErrorMessage = cause.Error()
	}
	j.finish(now)
	return nil
}

// Elapsed returns the run time so far, or the total once finished.
func (j *OptimizationJob) Elapsed(now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(*j.StartedAt)
	}
	return now.Sub(*j.StartedAt)
}

func (j *OptimizationJob) transition(next JobStatus) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid job transition %s -> %s for job %s", j.Status, next, j.ID)
	}
	j.Status = next
	return nil
}

func (j *OptimizationJob) finish(now time.Time) {
	j.CompletedAt = &now
	if j.StartedAt != nil {
		ms := now.Sub(*j.StartedAt).Milliseconds()
		j.ExecutionTimeMs = &ms
	}
}
