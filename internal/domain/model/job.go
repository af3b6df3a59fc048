package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobState represents the lifecycle state of a job.
type JobState string

// Lane represents the priority bucket a queued job currently resides in.
type Lane string

const (
	// JobStateQueued indicates a job is waiting in a lane.
	JobStateQueued JobState = "queued"
	// JobStateRunning indicates a job has been dispatched to the runner.
	JobStateRunning JobState = "running"
	// JobStatePaused indicates a job was preempted and is about to requeue.
	JobStatePaused JobState = "paused"
	// JobStateCompleted indicates a job finished successfully.
	JobStateCompleted JobState = "completed"
	// JobStateFailed indicates a job failed permanently.
	JobStateFailed JobState = "failed"

	// LaneUrgent is scanned first by the dispatcher.
	LaneUrgent Lane = "urgent"
	// LaneHigh is scanned second.
	LaneHigh Lane = "high"
	// LaneMedium is scanned third.
	LaneMedium Lane = "medium"
	// LaneLow is scanned last.
	LaneLow Lane = "low"
)

// Lanes returns the lanes in dispatcher scan order.
func Lanes() []Lane {
	return []Lane{LaneUrgent, LaneHigh, LaneMedium, LaneLow}
}

// Valid returns true if the JobState is valid.
func (s JobState) Valid() bool {
	return s == JobStateQueued || s == JobStateRunning || s == JobStatePaused ||
		s == JobStateCompleted || s == JobStateFailed
}

// Terminal reports whether the state is Completed or Failed.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Valid returns true if the Lane is valid.
func (l Lane) Valid() bool {
	return l == LaneUrgent || l == LaneHigh || l == LaneMedium || l == LaneLow
}

// ResourceCost models the weighted CPU/memory/network cost of a job.
type ResourceCost struct {
	CPU     float64 `json:"cpu"`
	Memory  float64 `json:"memory"`
	Network float64 `json:"network"`
}

// Add returns the component-wise sum of two costs.
func (c ResourceCost) Add(other ResourceCost) ResourceCost {
	return ResourceCost{
		CPU:     c.CPU + other.CPU,
		Memory:  c.Memory + other.Memory,
		Network: c.Network + other.Network,
	}
}

// Subtract returns the component-wise difference, floored at zero so that
// release never drives the aggregate negative.
func (c ResourceCost) Subtract(other ResourceCost) ResourceCost {
	return ResourceCost{
		CPU:     max(0, c.CPU-other.CPU),
		Memory:  max(0, c.Memory-other.Memory),
		Network: max(0, c.Network-other.Network),
	}
}

// Fits reports whether adding this cost to used stays within ceiling on
// every component.
func (c ResourceCost) Fits(used, ceiling ResourceCost) bool {
	return used.CPU+c.CPU <= ceiling.CPU &&
		used.Memory+c.Memory <= ceiling.Memory &&
		used.Network+c.Network <= ceiling.Network
}

// Total returns the sum of all components, used for utilization reporting.
func (c ResourceCost) Total() float64 {
	return c.CPU + c.Memory + c.Network
}

// IsZero reports whether all components are zero.
func (c ResourceCost) IsZero() bool {
	return c.CPU == 0 && c.Memory == 0 && c.Network == 0
}

// Job represents a unit of work submitted for processing.
type Job struct {
	ID                string          `json:"id"`
	Tier              PackageTier     `json:"tier"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	SubmittedAt       time.Time       `json:"submitted_at"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	FailedAt          *time.Time      `json:"failed_at,omitempty"`
	BasePriority      float64         `json:"base_priority"`
	EffectivePriority float64         `json:"effective_priority"`
	EstimatedCost     ResourceCost    `json:"estimated_cost"`
	State             JobState        `json:"state"`
	RetryCount        int             `json:"retry_count"`
	Lane              Lane            `json:"lane"`
	LastError         *string         `json:"last_error,omitempty"`

	// NotBefore defers dispatch eligibility after a retry backoff.
	NotBefore time.Time `json:"not_before,omitzero"`

	// CancelRequested marks cooperative cancellation of a running job.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// WaitTime returns how long the job has been waiting since submission.
// Accumulated wait survives preemption because SubmittedAt is preserved.
func (j *Job) WaitTime(now time.Time) time.Duration {
	return now.Sub(j.SubmittedAt)
}

// Eligible reports whether the job may be considered for dispatch at now,
// i.e. any retry backoff has elapsed.
func (j *Job) Eligible(now time.Time) bool {
	return j.NotBefore.IsZero() || !now.Before(j.NotBefore)
}

// SubmitRequest represents a request to submit a new job.
type SubmitRequest struct {
	Tier PackageTier `json:"tier"`

	// Payload is opaque to the scheduler; only its size feeds the
	// resource-cost estimate.
	Payload json.RawMessage `json:"payload,omitempty"`

	// PriorityHint is an optional caller-supplied score added to the
	// tier-derived base priority.
	PriorityHint float64 `json:"priority_hint,omitempty"`
}

// Validate validates the SubmitRequest fields.
func (r *SubmitRequest) Validate() error {
	if !r.Tier.Valid() {
		return fmt.Errorf("invalid tier: %q", r.Tier)
	}
	if r.PriorityHint < 0 || r.PriorityHint > 100 {
		return errors.New("priority hint must be between 0 and 100")
	}
	return nil
}

// EventType identifies a scheduler notification event.
type EventType string

const (
	// EventSLAViolation signals a queued job exceeded its tier SLA target.
	EventSLAViolation EventType = "sla_violation"
	// EventJobCompleted signals successful completion.
	EventJobCompleted EventType = "job_completed"
	// EventJobFailed signals permanent failure.
	EventJobFailed EventType = "job_failed"
	// EventPreempted signals a running job was paused for a higher tier.
	EventPreempted EventType = "preempted"
)

// SchedulerEvent is the payload emitted to notification sinks.
type SchedulerEvent struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	Tier      PackageTier `json:"tier"`
	Timestamp time.Time   `json:"timestamp"`
	Detail    string      `json:"detail,omitempty"`
}

// LaneDepths maps each lane to its queued-job count.
type LaneDepths map[Lane]int

// Clone returns a copy safe to hand to callers.
func (d LaneDepths) Clone() LaneDepths {
	out := make(LaneDepths, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
