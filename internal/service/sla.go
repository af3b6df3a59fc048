package service

import (
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// scanSLA flags queued jobs whose wait exceeds their tier SLA target. Each
// violation is reported once per detection: the flag clears only when the
// job leaves the queued state. Flagged jobs are force-promoted to the
// urgent lane. Caller holds the lock.
func (s *Scheduler) scanSLA(now time.Time, result *core.TickResult) []model.SchedulerEvent {
	var events []model.SchedulerEvent

	for _, lane := range model.Lanes() {
		for _, job := range s.lanes[lane] {
			if s.slaFlagged[job.ID] || !s.scorer.SLAViolated(job, now) {
				continue
			}
			s.slaFlagged[job.ID] = true
			s.statsFor(job.Tier).SLAViolations++
			result.Violations++

			events = append(events, model.SchedulerEvent{
				Type:      model.EventSLAViolation,
				JobID:     job.ID,
				Tier:      job.Tier,
				Timestamp: now,
				Detail:    "queued past tier SLA target",
			})
		}
	}

	// Promote after the scan; moveLane mutates the lane slices.
	for id := range s.slaFlagged {
		job, ok := s.index[id]
		if !ok || job.State != model.JobStateQueued {
			continue
		}
		if job.Lane != model.LaneUrgent {
			s.moveLane(job, model.LaneUrgent)
			result.Promoted++
		}
	}

	return events
}

// reapStale fails running jobs that exceeded their tier execution timeout.
// The stuck execution is cancelled and its eventual result discarded; the
// job itself re-enters the queue as a transient failure. Caller holds the
// lock.
func (s *Scheduler) reapStale(now time.Time, result *core.TickResult) []model.SchedulerEvent {
	var stale []*runningJob
	for _, entry := range s.running {
		settings, ok := s.cfg.Tiers[entry.job.Tier]
		if !ok || settings.ExecutionTimeout <= 0 {
			continue
		}
		if now.Sub(entry.startedAt) > settings.ExecutionTimeout {
			stale = append(stale, entry)
		}
	}

	var events []model.SchedulerEvent
	for _, entry := range stale {
		job := entry.job
		s.releaseRunning(entry)
		settings := s.cfg.Tiers[job.Tier]
		events = append(events, s.handleFailure(job, settings, now, "execution timeout exceeded", true)...)
		result.Reaped++

		s.logger.Warn("reaped stale job",
			"job_id", job.ID,
			"tier", job.Tier,
			"running_for", now.Sub(entry.startedAt),
		)
	}
	return events
}

// preemptForUrgent admits blocked urgent-lane jobs of the top tier by
// pausing running jobs of lower tiers. The victim is the running job with
// the lowest effective priority outside the top tier; it transitions
// Running -> Paused -> Queued with its submission time (and therefore its
// accumulated urgency) and retry count intact. Caller holds the lock.
func (s *Scheduler) preemptForUrgent(now time.Time, result *core.TickResult) []model.SchedulerEvent {
	top := s.cfg.TopTier()
	settings, ok := s.cfg.Tiers[top]
	if !ok {
		return nil
	}

	var events []model.SchedulerEvent

	s.sortLane(model.LaneUrgent)
	candidates := make([]*model.Job, len(s.lanes[model.LaneUrgent]))
	copy(candidates, s.lanes[model.LaneUrgent])

	for _, job := range candidates {
		if job.Tier != top || !job.Eligible(now) || !settings.Window.Contains(now) {
			continue
		}
		if s.tierRunning[top] >= settings.MaxConcurrent {
			// The top tier is using its own full allowance; preemption
			// only reclaims capacity held by lower tiers.
			break
		}

		// Free capacity one victim at a time until the urgent job fits.
		for !s.admissible(job) {
			victim := s.lowestPriorityVictim(top)
			if victim == nil {
				break
			}
			events = append(events, s.preempt(victim, now))
			result.Preemptions++
		}

		if s.admissible(job) {
			s.startJob(job, now)
			result.Dispatched++
		}
	}

	return events
}

// admissible checks global slots and the resource ceiling for a candidate.
// Caller holds the lock.
func (s *Scheduler) admissible(job *model.Job) bool {
	if len(s.running) >= s.cfg.GlobalMaxConcurrent {
		return false
	}
	return job.EstimatedCost.Fits(s.reserved, s.cfg.ResourceCeiling)
}

// lowestPriorityVictim selects the running job with the lowest effective
// priority among jobs not of the top tier. Caller holds the lock.
func (s *Scheduler) lowestPriorityVictim(top model.PackageTier) *runningJob {
	var victim *runningJob
	for _, entry := range s.running {
		if entry.job.Tier == top {
			continue
		}
		if victim == nil || entry.job.EffectivePriority < victim.job.EffectivePriority {
			victim = entry
		}
	}
	return victim
}

// preempt pauses a running job and returns it to the queue. The stale
// execution is cancelled; its eventual runner result is discarded via the
// sequence check in settle. Caller holds the lock.
func (s *Scheduler) preempt(entry *runningJob, now time.Time) model.SchedulerEvent {
	job := entry.job
	s.releaseRunning(entry)

	job.State = model.JobStatePaused
	job.StartedAt = nil

	// Paused is transient: the job returns to its lane immediately, with
	// SubmittedAt and RetryCount untouched.
	job.State = model.JobStateQueued
	job.EffectivePriority = s.scorer.Score(job, now)
	job.Lane = s.scorer.AssignLane(job, now)
	s.pushLane(job)

	s.statsFor(job.Tier).Preemptions++

	return model.SchedulerEvent{
		Type:      model.EventPreempted,
		JobID:     job.ID,
		Tier:      job.Tier,
		Timestamp: now,
		Detail:    "paused for urgent higher-tier job",
	}
}
