// Package core provides the interfaces and runtime configuration for the
// autobolt scheduler.
package core

import (
	"context"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// RunResult is the runner's verdict on an executed job.
type RunResult struct {
	// Success indicates the job finished without error.
	Success bool

	// Retryable marks a failure as transient. Ignored when Success is true.
	Retryable bool

	// ActualCost optionally reports the measured resource cost. Zero means
	// the runner did not measure.
	ActualCost model.ResourceCost

	// Detail carries a short human-readable failure description.
	Detail string
}

// JobRunner executes jobs on behalf of the scheduler. Execution is
// fire-and-forget from the scheduler's perspective: the dispatcher invokes
// Execute on its own goroutine and routes the result back through the
// registry lock. Implementations must honour ctx cancellation, which the
// scheduler uses for cooperative job cancellation.
type JobRunner interface {
	Execute(ctx context.Context, job model.Job) (RunResult, error)
}

// JobScheduler is the caller-facing surface of the scheduler.
type JobScheduler interface {
	// Submit admits a job and returns its generated id, or an invalid-tier
	// or validation error.
	Submit(ctx context.Context, req model.SubmitRequest) (string, error)

	// Cancel requests cancellation. Queued jobs are removed immediately;
	// running jobs are cancelled cooperatively. Terminal jobs are a no-op.
	Cancel(ctx context.Context, jobID string) error

	// Tick runs one scheduling pass at the given time and returns a summary.
	Tick(ctx context.Context, now time.Time) (TickResult, error)

	// Status returns a read-only snapshot of the scheduler state.
	Status() StatusSnapshot
}

// TickResult summarises one scheduling pass.
type TickResult struct {
	Dispatched   int
	Promoted     int
	Violations   int
	Preemptions  int
	Reaped       int
	SkippedBusy  int
	QueuedTotal  int
	RunningTotal int
}

// StatusSnapshot is the read-only view returned by Status.
type StatusSnapshot struct {
	QueueDepths         model.LaneDepths              `json:"queue_depths"`
	RunningCount        int                           `json:"running_count"`
	ArchivedCount       int                           `json:"archived_count"`
	Paused              bool                          `json:"paused"`
	PerTier             map[model.PackageTier]Metrics `json:"per_tier"`
	ResourceUtilization float64                       `json:"resource_utilization"`
	ResourceUsed        model.ResourceCost            `json:"resource_used"`
	ResourceCeiling     model.ResourceCost            `json:"resource_ceiling"`
	LastTickAt          time.Time                     `json:"last_tick_at"`
	StartedAt           time.Time                     `json:"started_at"`
}

// Metrics tracks per-tier compliance counters. All fields are updated
// synchronously on state transitions.
type Metrics struct {
	Submitted         int           `json:"submitted"`
	Completed         int           `json:"completed"`
	Failed            int           `json:"failed"`
	Retries           int           `json:"retries"`
	Preemptions       int           `json:"preemptions"`
	SLAViolations     int           `json:"sla_violations"`
	CompletedInTarget int           `json:"completed_in_target"`
	AvgWait           time.Duration `json:"avg_wait"`
	AvgProcessing     time.Duration `json:"avg_processing"`
}

// Processed returns the total number of terminally settled jobs.
func (m Metrics) Processed() int {
	return m.Completed + m.Failed
}

// SuccessRate returns the fraction of processed jobs that completed.
func (m Metrics) SuccessRate() float64 {
	if m.Processed() == 0 {
		return 0
	}
	return float64(m.Completed) / float64(m.Processed())
}

// SLACompliance returns completed-within-target over total processed.
func (m Metrics) SLACompliance() float64 {
	if m.Processed() == 0 {
		return 0
	}
	return float64(m.CompletedInTarget) / float64(m.Processed())
}

// EventNotifier receives scheduler events. Delivery mechanics (slack, log,
// pagerduty) live behind this interface.
type EventNotifier interface {
	Notify(ctx context.Context, event model.SchedulerEvent)
}

// EventNotifierFunc adapts a function to the EventNotifier interface.
type EventNotifierFunc func(ctx context.Context, event model.SchedulerEvent)

// Notify implements EventNotifier.
func (f EventNotifierFunc) Notify(ctx context.Context, event model.SchedulerEvent) {
	if f == nil {
		return
	}
	f(ctx, event)
}

// StateStore persists the scheduler's serialized queue+metrics blob for
// crash recovery. The format is owned by the scheduler.
type StateStore interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
}
