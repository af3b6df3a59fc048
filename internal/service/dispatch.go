package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/sched"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/metrics"
)

// Tick runs one scheduling pass: age queued jobs, detect SLA violations,
// reap stale executions, dispatch admissible jobs, and preempt for urgent
// top-tier work. Errors in one job's processing never abort the pass for
// the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (core.TickResult, error) {
	var result core.TickResult
	var events []model.SchedulerEvent

	s.mu.Lock()
	s.lastTickAt = now

	s.ageQueuedJobs(now)
	events = append(events, s.scanSLA(now, &result)...)
	events = append(events, s.reapStale(now, &result)...)

	if !s.paused {
		s.dispatch(now, &result)
		events = append(events, s.preemptForUrgent(now, &result)...)
	}

	for _, queue := range s.lanes {
		result.QueuedTotal += len(queue)
	}
	result.RunningTotal = len(s.running)
	s.mu.Unlock()

	s.emit(ctx, events)
	return result, nil
}

// ageQueuedJobs recomputes every queued job's effective priority and
// promotes jobs whose accumulated wait has earned them a faster lane.
// Caller holds the lock.
func (s *Scheduler) ageQueuedJobs(now time.Time) {
	type laneMove struct {
		job    *model.Job
		target model.Lane
	}
	var moves []laneMove

	for _, lane := range model.Lanes() {
		for _, job := range s.lanes[lane] {
			s.withJobRecovery(job.ID, func() {
				job.EffectivePriority = s.scorer.Score(job, now)
				if target := s.scorer.AssignLane(job, now); target != job.Lane {
					moves = append(moves, laneMove{job: job, target: target})
				}
			})
		}
	}

	for _, move := range moves {
		s.moveLane(move.job, move.target)
	}
}

// dispatch scans lanes in priority order and moves admissible jobs into
// execution, respecting the global slot count, per-tier concurrency, the
// resource ceiling, and tier processing windows. Caller holds the lock.
func (s *Scheduler) dispatch(now time.Time, result *core.TickResult) {
	slots := s.cfg.GlobalMaxConcurrent - len(s.running)
	if slots <= 0 {
		return
	}

	for _, lane := range model.Lanes() {
		s.sortLane(lane)

		// Copy the queue: startJob mutates the lane slice.
		candidates := make([]*model.Job, len(s.lanes[lane]))
		copy(candidates, s.lanes[lane])

		for _, job := range candidates {
			if slots == 0 {
				return
			}
			admitted := false
			s.withJobRecovery(job.ID, func() {
				admitted = s.tryAdmit(job, now, result)
			})
			if admitted {
				result.Dispatched++
				slots--
			}
		}
	}
}

// sortLane orders a lane by effective priority descending with FIFO
// tie-break on submission time. Caller holds the lock.
func (s *Scheduler) sortLane(lane model.Lane) {
	queue := s.lanes[lane]
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].EffectivePriority != queue[j].EffectivePriority {
			return queue[i].EffectivePriority > queue[j].EffectivePriority
		}
		return queue[i].SubmittedAt.Before(queue[j].SubmittedAt)
	})
}

// tryAdmit checks a single candidate's admissibility and starts it when
// admissible. A job outside its processing window or still in backoff is
// skipped without counting as an admissibility failure. Caller holds the lock.
func (s *Scheduler) tryAdmit(job *model.Job, now time.Time, result *core.TickResult) bool {
	if !job.Eligible(now) {
		return false
	}

	settings, ok := s.cfg.Tiers[job.Tier]
	if !ok {
		return false
	}
	if !settings.Window.Contains(now) {
		return false
	}

	if s.tierRunning[job.Tier] >= settings.MaxConcurrent {
		result.SkippedBusy++
		return false
	}
	if !job.EstimatedCost.Fits(s.reserved, s.cfg.ResourceCeiling) {
		result.SkippedBusy++
		return false
	}

	s.startJob(job, now)
	return true
}

// startJob transitions a queued job to Running, reserves its resources,
// and hands it to the runner on a fresh goroutine. Caller holds the lock.
func (s *Scheduler) startJob(job *model.Job, now time.Time) {
	s.removeFromLane(job)

	startedAt := now
	job.State = model.JobStateRunning
	job.StartedAt = &startedAt
	job.NotBefore = time.Time{}

	s.reserved = s.reserved.Add(job.EstimatedCost)
	s.tierRunning[job.Tier]++

	s.nextSeq++
	seq := s.nextSeq

	runCtx, cancel := context.WithCancel(context.Background())
	s.running[job.ID] = &runningJob{
		job:       job,
		cancel:    cancel,
		seq:       seq,
		startedAt: now,
	}

	go s.execute(runCtx, *job, seq)
}

// execute runs a job through the runner and funnels the result back under
// the registry lock. A panicking runner settles the job as a transient
// failure instead of crashing the scheduler.
func (s *Scheduler) execute(ctx context.Context, job model.Job, seq uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job runner panicked",
				"job_id", job.ID,
				"panic", fmt.Sprint(r),
			)
			s.settle(job.ID, seq, core.RunResult{
				Retryable: true,
				Detail:    fmt.Sprintf("runner panic: %v", r),
			}, nil)
		}
	}()

	result, err := s.runner.Execute(ctx, job)
	s.settle(job.ID, seq, result, err)
}

// settle routes a runner result back into the registry. Results for stale
// executions (preempted or reaped while the runner was still working) are
// discarded.
func (s *Scheduler) settle(jobID string, seq uint64, result core.RunResult, runErr error) {
	s.mu.Lock()

	entry, ok := s.running[jobID]
	if !ok || entry.seq != seq {
		s.mu.Unlock()
		return
	}

	job := entry.job
	now := s.clock.Now()
	s.releaseRunning(entry)

	settings := s.cfg.Tiers[job.Tier]

	var events []model.SchedulerEvent
	var lifecycle metrics.JobMetric

	switch {
	case job.CancelRequested:
		events = append(events, s.finalizeFailure(job, now, "cancelled by caller"))
		lifecycle = metrics.JobMetric{
			Tier:       string(job.Tier),
			Transition: "cancelled",
			Result:     metrics.ResultNoop,
		}

	case runErr == nil && result.Success:
		events = append(events, s.finalizeSuccess(job, settings, now))
		lifecycle = metrics.JobMetric{
			Tier:       string(job.Tier),
			Transition: "completed",
			Result:     metrics.ResultSuccess,
			Duration:   now.Sub(*job.StartedAt),
		}

	default:
		detail := result.Detail
		if detail == "" && runErr != nil {
			detail = runErr.Error()
		}
		if detail == "" {
			detail = "execution failed"
		}
		// A runner error (as opposed to a reported non-retryable failure)
		// is treated as transient.
		retryable := result.Retryable || runErr != nil
		events = append(events, s.handleFailure(job, settings, now, detail, retryable)...)
		lifecycle = metrics.JobMetric{
			Tier:       string(job.Tier),
			Transition: "failed",
			Result:     metrics.ResultError,
			Err:        runErr,
		}
	}

	s.mu.Unlock()

	metrics.EmitJobLifecycle(s.metrics, lifecycle)
	if s.metrics != nil && !result.ActualCost.IsZero() {
		// Runners that measure report the true cost of the finished job;
		// the dispatcher only ever reserved the estimate.
		s.metrics.Gauge("job.actual_cost", result.ActualCost.Total(), map[string]string{
			"tier": string(job.Tier),
		})
	}
	s.emit(context.Background(), events)
}

// releaseRunning removes a running entry and returns its resources to the
// budget. Caller holds the lock.
func (s *Scheduler) releaseRunning(entry *runningJob) {
	job := entry.job
	delete(s.running, job.ID)
	if s.tierRunning[job.Tier] > 0 {
		s.tierRunning[job.Tier]--
	}
	s.reserved = s.reserved.Subtract(job.EstimatedCost)
	entry.cancel()
}

// finalizeSuccess moves a job to Completed and archives it. Caller holds
// the lock; the returned event is emitted after unlock.
func (s *Scheduler) finalizeSuccess(job *model.Job, settings model.TierSettings, now time.Time) model.SchedulerEvent {
	job.State = model.JobStateCompleted
	completedAt := now
	job.CompletedAt = &completedAt

	stats := s.statsFor(job.Tier)
	stats.Completed++
	if job.StartedAt != nil {
		stats.recordWait(job.StartedAt.Sub(job.SubmittedAt))
		stats.recordProcessing(now.Sub(*job.StartedAt))
	}
	// SLA target covers wait plus processing.
	if settings.SLATarget > 0 && now.Sub(job.SubmittedAt) <= settings.SLATarget {
		stats.CompletedInTarget++
	}

	delete(s.index, job.ID)
	delete(s.slaFlagged, job.ID)
	s.archive.add(job)

	return model.SchedulerEvent{
		Type:      model.EventJobCompleted,
		JobID:     job.ID,
		Tier:      job.Tier,
		Timestamp: now,
	}
}

// handleFailure requeues a transiently failed job with backoff when retry
// budget remains, and finalizes it as Failed otherwise. Caller holds the
// lock; returned events are emitted after unlock.
func (s *Scheduler) handleFailure(
	job *model.Job,
	settings model.TierSettings,
	now time.Time,
	detail string,
	retryable bool,
) []model.SchedulerEvent {
	if retryable && !sched.RetriesExhausted(settings, job.RetryCount) {
		job.RetryCount++
		job.State = model.JobStateQueued
		job.StartedAt = nil
		job.LastError = &detail
		job.NotBefore = now.Add(sched.RetryDelay(settings, job.RetryCount))
		job.EffectivePriority = s.scorer.Score(job, now)
		job.Lane = s.scorer.AssignLane(job, now)
		s.pushLane(job)

		s.statsFor(job.Tier).Retries++
		return nil
	}

	if retryable {
		detail = fmt.Sprintf("retries exhausted: %s", detail)
	}
	return []model.SchedulerEvent{s.finalizeFailure(job, now, detail)}
}

// withJobRecovery contains a single job's processing error so one bad job
// cannot abort the tick for the rest.
func (s *Scheduler) withJobRecovery(jobID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick processing failed for job",
				"job_id", jobID,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}
