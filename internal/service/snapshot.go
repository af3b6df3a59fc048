package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// stateVersion tags the snapshot format for forward compatibility.
const stateVersion = 1

// schedulerState is the serialized crash-recovery form of the registry.
// Running jobs are exported as queued: their in-flight work is lost at a
// crash, but their submission time (and thus accumulated wait) survives.
type schedulerState struct {
	Version    int                                  `json:"version"`
	ExportedAt time.Time                            `json:"exported_at"`
	Paused     bool                                 `json:"paused"`
	Jobs       []model.Job                          `json:"jobs"`
	Archive    []model.Job                          `json:"archive"`
	Stats      map[model.PackageTier]tierStatsState `json:"stats"`
	SLAFlagged []string                             `json:"sla_flagged,omitempty"`
}

// tierStatsState is the exported form of the per-tier accumulators.
type tierStatsState struct {
	Submitted         int           `json:"submitted"`
	Completed         int           `json:"completed"`
	Failed            int           `json:"failed"`
	Retries           int           `json:"retries"`
	Preemptions       int           `json:"preemptions"`
	SLAViolations     int           `json:"sla_violations"`
	CompletedInTarget int           `json:"completed_in_target"`
	WaitSamples       int           `json:"wait_samples"`
	WaitSum           time.Duration `json:"wait_sum"`
	ProcessSamples    int           `json:"process_samples"`
	ProcessSum        time.Duration `json:"process_sum"`
}

// ExportState serializes the full queue+metrics state to an opaque blob
// suitable for the persistence collaborator.
func (s *Scheduler) ExportState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := schedulerState{
		Version:    stateVersion,
		ExportedAt: s.clock.Now(),
		Paused:     s.paused,
		Stats:      make(map[model.PackageTier]tierStatsState, len(s.tierStats)),
	}

	for _, lane := range model.Lanes() {
		for _, job := range s.lanes[lane] {
			state.Jobs = append(state.Jobs, *job)
		}
	}
	for _, entry := range s.running {
		job := *entry.job
		// Re-queue on restore; the execution does not survive a crash.
		job.State = model.JobStateQueued
		job.StartedAt = nil
		state.Jobs = append(state.Jobs, job)
	}

	for _, job := range s.archive.all() {
		state.Archive = append(state.Archive, *job)
	}

	for tier, stats := range s.tierStats {
		state.Stats[tier] = tierStatsState{
			Submitted:         stats.Submitted,
			Completed:         stats.Completed,
			Failed:            stats.Failed,
			Retries:           stats.Retries,
			Preemptions:       stats.Preemptions,
			SLAViolations:     stats.SLAViolations,
			CompletedInTarget: stats.CompletedInTarget,
			WaitSamples:       stats.waitSamples,
			WaitSum:           stats.waitSum,
			ProcessSamples:    stats.processSamples,
			ProcessSum:        stats.processSum,
		}
	}

	for id := range s.slaFlagged {
		state.SLAFlagged = append(state.SLAFlagged, id)
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal scheduler state: %w", err)
	}
	return blob, nil
}

// RestoreState rebuilds the registry from a blob produced by ExportState.
// It must be called before the scheduler starts ticking; restoring over
// live executions is rejected.
func (s *Scheduler) RestoreState(blob []byte) error {
	var state schedulerState
	if err := json.Unmarshal(blob, &state); err != nil {
		return fmt.Errorf("unmarshal scheduler state: %w", err)
	}
	if state.Version != stateVersion {
		return fmt.Errorf("unsupported scheduler state version %d", state.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.running) > 0 {
		return fmt.Errorf("cannot restore state with %d jobs running", len(s.running))
	}

	for _, lane := range model.Lanes() {
		s.lanes[lane] = nil
	}
	s.index = make(map[string]*model.Job)
	s.archive = newTerminalArchive(s.cfg.ArchiveCapacity)
	s.tierStats = make(map[model.PackageTier]*tierStats)
	s.slaFlagged = make(map[string]bool)
	s.reserved = model.ResourceCost{}
	s.tierRunning = make(map[model.PackageTier]int)
	s.paused = state.Paused

	now := s.clock.Now()
	for i := range state.Jobs {
		job := state.Jobs[i]
		if !job.Lane.Valid() {
			job.Lane = model.LaneLow
		}
		job.State = model.JobStateQueued
		job.EffectivePriority = s.scorer.Score(&job, now)
		job.Lane = s.scorer.AssignLane(&job, now)

		restored := job
		s.pushLane(&restored)
		s.index[restored.ID] = &restored
	}

	for i := range state.Archive {
		archived := state.Archive[i]
		s.archive.add(&archived)
	}

	for tier, exported := range state.Stats {
		s.tierStats[tier] = &tierStats{
			Submitted:         exported.Submitted,
			Completed:         exported.Completed,
			Failed:            exported.Failed,
			Retries:           exported.Retries,
			Preemptions:       exported.Preemptions,
			SLAViolations:     exported.SLAViolations,
			CompletedInTarget: exported.CompletedInTarget,
			waitSamples:       exported.WaitSamples,
			waitSum:           exported.WaitSum,
			processSamples:    exported.ProcessSamples,
			processSum:        exported.ProcessSum,
		}
	}

	for _, id := range state.SLAFlagged {
		if _, ok := s.index[id]; ok {
			s.slaFlagged[id] = true
		}
	}

	return nil
}
