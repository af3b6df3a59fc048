// Package service implements the package-tiered job scheduler: admission,
// resource-budgeted dispatch, SLA monitoring, and preemption.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/data"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/sched"
	apperrors "github.com/Rainking6693/autobolt-scheduler/internal/errors"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/statsd"
)

// runningJob pairs a live job with its execution handle.
type runningJob struct {
	job    *model.Job
	cancel context.CancelFunc

	// seq distinguishes executions of the same job across preemptions and
	// retries; a settle call with a stale seq is discarded.
	seq uint64

	startedAt time.Time
}

// Scheduler owns the entire job registry: four lane queues, the running
// set, and the terminal archive. Every job is in exactly one of the three
// at all times. All mutation is serialized behind a single mutex; the
// asynchronous runner results funnel back through the same lock.
type Scheduler struct {
	cfg      core.SchedulerConfig
	runner   core.JobRunner
	notifier core.EventNotifier
	metrics  statsd.Sink
	logger   *slog.Logger
	clock    data.TimeProvider
	scorer   *sched.Scorer

	mu          sync.Mutex
	lanes       map[model.Lane][]*model.Job
	running     map[string]*runningJob
	index       map[string]*model.Job
	archive     *terminalArchive
	reserved    model.ResourceCost
	tierRunning map[model.PackageTier]int
	tierStats   map[model.PackageTier]*tierStats
	slaFlagged  map[string]bool
	paused      bool
	nextSeq     uint64
	startedAt   time.Time
	lastTickAt  time.Time
}

var _ core.JobScheduler = (*Scheduler)(nil)

// SchedulerOptions holds the dependencies for creating a Scheduler.
type SchedulerOptions struct {
	Config   *core.SchedulerConfig
	Runner   core.JobRunner
	Notifier core.EventNotifier
	Metrics  statsd.Sink
	Logger   *slog.Logger
	Clock    data.TimeProvider
}

// NewScheduler creates a Scheduler with the given dependencies. The runner
// is required; everything else has defaults.
func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Runner == nil {
		return nil, apperrors.Validation("job runner is required")
	}
	if opts.Config == nil {
		defaultCfg := core.DefaultSchedulerConfig()
		opts.Config = &defaultCfg
	}
	if len(opts.Config.Tiers) == 0 {
		return nil, apperrors.Validation("tier configuration is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "scheduler")
	}
	if opts.Clock == nil {
		opts.Clock = &data.RealTimeProvider{}
	}

	s := &Scheduler{
		cfg:      *opts.Config,
		runner:   opts.Runner,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		clock:    opts.Clock,
		scorer: sched.NewScorer(sched.ScorerOptions{
			Tiers:         opts.Config.Tiers,
			DisableJitter: opts.Config.DisableJitter,
		}),
		lanes:       make(map[model.Lane][]*model.Job),
		running:     make(map[string]*runningJob),
		index:       make(map[string]*model.Job),
		archive:     newTerminalArchive(opts.Config.ArchiveCapacity),
		tierRunning: make(map[model.PackageTier]int),
		tierStats:   make(map[model.PackageTier]*tierStats),
		slaFlagged:  make(map[string]bool),
		startedAt:   opts.Clock.Now(),
	}
	for _, lane := range model.Lanes() {
		s.lanes[lane] = nil
	}
	return s, nil
}

// Submit admits a job: validates the tier, computes its base priority and
// estimated resource cost, and places it in a lane in Queued state.
func (s *Scheduler) Submit(ctx context.Context, req model.SubmitRequest) (string, error) {
	if !req.Tier.Valid() {
		return "", apperrors.InvalidTierf("unknown package tier: %q", req.Tier)
	}
	settings, ok := s.cfg.Tiers[req.Tier]
	if !ok {
		return "", apperrors.InvalidTierf("tier %q has no configuration", req.Tier)
	}
	if err := req.Validate(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid submit request")
	}

	now := s.clock.Now()
	job := &model.Job{
		ID:            uuid.NewString(),
		Tier:          req.Tier,
		Payload:       req.Payload,
		SubmittedAt:   now,
		State:         model.JobStateQueued,
		BasePriority:  s.scorer.BasePriority(req.Tier, req.PriorityHint),
		EstimatedCost: sched.EstimateCost(len(req.Payload), settings),
	}
	job.EffectivePriority = s.scorer.Score(job, now)

	s.mu.Lock()
	job.Lane = s.scorer.AssignLane(job, now)
	s.pushLane(job)
	s.index[job.ID] = job
	s.statsFor(job.Tier).Submitted++
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "job admitted",
		"job_id", job.ID,
		"tier", job.Tier,
		"lane", job.Lane,
		"base_priority", job.BasePriority,
	)

	return job.ID, nil
}

// Cancel requests cancellation of a job. Queued jobs are removed from their
// lane immediately without counting as failures; running jobs are cancelled
// cooperatively through the runner's context and settle as Failed once the
// runner acknowledges. Cancelling a terminal job is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()

	if s.archive.contains(jobID) {
		s.mu.Unlock()
		return nil
	}

	job, ok := s.index[jobID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NotFoundf("job %s not found", jobID)
	}

	switch job.State {
	case model.JobStateQueued:
		s.removeFromLane(job)
		s.finalizeCancelled(job, s.clock.Now(), "cancelled before dispatch")
	case model.JobStateRunning:
		job.CancelRequested = true
		if entry, ok := s.running[jobID]; ok && entry.cancel != nil {
			entry.cancel()
		}
	default:
		// Paused jobs requeue within the same tick; treat as queued next tick.
		job.CancelRequested = true
	}

	s.mu.Unlock()
	return nil
}

// Pause stops the dispatcher from admitting jobs into execution.
// Submissions and SLA monitoring continue while paused.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables dispatching.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Status returns a read-only snapshot of the current scheduler state.
func (s *Scheduler) Status() core.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	depths := make(model.LaneDepths, len(s.lanes))
	for lane, jobs := range s.lanes {
		depths[lane] = len(jobs)
	}

	perTier := make(map[model.PackageTier]core.Metrics, len(s.tierStats))
	for tier, stats := range s.tierStats {
		perTier[tier] = stats.snapshot()
	}

	var utilization float64
	if total := s.cfg.ResourceCeiling.Total(); total > 0 {
		utilization = s.reserved.Total() / total
	}

	return core.StatusSnapshot{
		QueueDepths:         depths,
		RunningCount:        len(s.running),
		ArchivedCount:       s.archive.len(),
		Paused:              s.paused,
		PerTier:             perTier,
		ResourceUtilization: utilization,
		ResourceUsed:        s.reserved,
		ResourceCeiling:     s.cfg.ResourceCeiling,
		LastTickAt:          s.lastTickAt,
		StartedAt:           s.startedAt,
	}
}

// pushLane appends a job to its lane queue. Caller holds the lock.
func (s *Scheduler) pushLane(job *model.Job) {
	s.lanes[job.Lane] = append(s.lanes[job.Lane], job)
}

// removeFromLane deletes a job from its lane queue. Caller holds the lock.
func (s *Scheduler) removeFromLane(job *model.Job) {
	queue := s.lanes[job.Lane]
	for i, queued := range queue {
		if queued.ID == job.ID {
			s.lanes[job.Lane] = append(queue[:i], queue[i+1:]...)
			return
		}
	}
}

// moveLane relocates a queued job between lanes. Caller holds the lock.
func (s *Scheduler) moveLane(job *model.Job, target model.Lane) {
	if job.Lane == target {
		return
	}
	s.removeFromLane(job)
	job.Lane = target
	s.pushLane(job)
}

// finalizeFailure moves a job to the terminal Failed state and archives it.
// Caller holds the lock; the returned event is emitted after unlock.
func (s *Scheduler) finalizeFailure(job *model.Job, now time.Time, detail string) model.SchedulerEvent {
	job.State = model.JobStateFailed
	failedAt := now
	job.FailedAt = &failedAt
	job.LastError = &detail

	stats := s.statsFor(job.Tier)
	stats.Failed++
	stats.recordWait(job.WaitTime(now))

	delete(s.index, job.ID)
	delete(s.slaFlagged, job.ID)
	s.archive.add(job)

	return model.SchedulerEvent{
		Type:      model.EventJobFailed,
		JobID:     job.ID,
		Tier:      job.Tier,
		Timestamp: now,
		Detail:    detail,
	}
}

// finalizeCancelled archives a never-dispatched job the caller withdrew.
// Unlike finalizeFailure it touches no failure counters and emits no event:
// a caller-initiated removal of queued work is not a scheduling outcome.
// Caller holds the lock.
func (s *Scheduler) finalizeCancelled(job *model.Job, now time.Time, detail string) {
	job.State = model.JobStateFailed
	failedAt := now
	job.FailedAt = &failedAt
	job.LastError = &detail

	delete(s.index, job.ID)
	delete(s.slaFlagged, job.ID)
	s.archive.add(job)
}

// emit delivers events to the notifier outside the registry lock.
func (s *Scheduler) emit(ctx context.Context, events []model.SchedulerEvent) {
	if s.notifier == nil || len(events) == 0 {
		return
	}
	for _, event := range events {
		s.notifier.Notify(ctx, event)
	}
}

// statsFor returns the mutable per-tier stats entry. Caller holds the lock.
func (s *Scheduler) statsFor(tier model.PackageTier) *tierStats {
	stats, ok := s.tierStats[tier]
	if !ok {
		stats = &tierStats{}
		s.tierStats[tier] = stats
	}
	return stats
}
