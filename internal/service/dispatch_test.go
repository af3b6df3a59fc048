package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainking6693/autobolt-scheduler/internal/adapters/jobrunner"
	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/data"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/service"
)

// panicRunner always panics; the scheduler must contain it.
type panicRunner struct{}

func (panicRunner) Execute(context.Context, model.Job) (core.RunResult, error) {
	panic("runner exploded")
}

func TestTick_DispatchesAndCompletes(t *testing.T) {
	f := newFixture(t, nil)
	id := f.submit(t, model.TierGrowth)

	result := f.tick(t)
	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.RunningTotal)
	assert.Equal(t, 0, result.QueuedTotal)

	f.waitProcessed(t, model.TierGrowth, 1)
	metrics := f.sched.Status().PerTier[model.TierGrowth]
	assert.Equal(t, 1, metrics.Completed)
	assert.Equal(t, 1, metrics.CompletedInTarget)

	completed := f.events.byType(model.EventJobCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, id, completed[0].JobID)
}

func TestTick_GlobalConcurrencyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalMaxConcurrent = 1
	f := newFixture(t, cfg,
		jobrunner.Step{Delay: time.Minute},
		jobrunner.Step{Delay: time.Minute},
	)

	f.submit(t, model.TierEnterprise)
	f.submit(t, model.TierEnterprise)

	result := f.tick(t)
	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.QueuedTotal)
	assert.Equal(t, 1, result.RunningTotal)
}

func TestTick_TierConcurrencyLimit(t *testing.T) {
	f := newFixture(t, nil,
		jobrunner.Step{Delay: time.Minute},
		jobrunner.Step{Delay: time.Minute},
	)

	// Starter allows a single concurrent job.
	f.submit(t, model.TierStarter)
	f.submit(t, model.TierStarter)

	result := f.tick(t)
	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.SkippedBusy)
	assert.Equal(t, 1, result.QueuedTotal)
}

func TestTick_ResourceCeilingBlocksAdmission(t *testing.T) {
	cfg := testConfig()
	cfg.ResourceCeiling = model.ResourceCost{CPU: 1, Memory: 1, Network: 1}
	f := newFixture(t, cfg,
		jobrunner.Step{Delay: time.Minute},
		jobrunner.Step{Delay: time.Minute},
	)

	// Each growth job costs 0.7 CPU; two would exceed the 1.0 ceiling.
	f.submit(t, model.TierGrowth)
	f.submit(t, model.TierGrowth)

	result := f.tick(t)
	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.SkippedBusy)
}

func TestTick_HigherTierDispatchedFirst(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalMaxConcurrent = 1
	f := newFixture(t, cfg, jobrunner.Step{Delay: time.Minute})

	starterID := f.submit(t, model.TierStarter)
	enterpriseID := f.submit(t, model.TierEnterprise)

	f.tick(t)

	require.Eventually(t, func() bool {
		return len(f.runner.Calls()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	calls := f.runner.Calls()
	assert.Equal(t, enterpriseID, calls[0].ID)
	assert.NotEqual(t, starterID, calls[0].ID)
}

func TestTick_FIFOTieBreakWithinTier(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalMaxConcurrent = 1
	f := newFixture(t, cfg, jobrunner.Step{Delay: time.Minute})

	firstID := f.submit(t, model.TierGrowth)
	f.clock.AddTime(time.Second)
	f.submit(t, model.TierGrowth)

	f.tick(t)

	require.Eventually(t, func() bool {
		return len(f.runner.Calls()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, firstID, f.runner.Calls()[0].ID)
}

func TestTick_RetryWithBackoff(t *testing.T) {
	f := newFixture(t, nil,
		jobrunner.Step{Result: core.RunResult{Retryable: true, Detail: "captcha timeout"}},
	)
	id := f.submit(t, model.TierGrowth)

	f.tick(t)

	// The failure settles asynchronously and requeues the job.
	require.Eventually(t, func() bool {
		return f.sched.Status().PerTier[model.TierGrowth].Retries == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Still inside the backoff window: not eligible.
	result := f.tick(t)
	assert.Zero(t, result.Dispatched)
	assert.Equal(t, 1, result.QueuedTotal)

	// Past the backoff the retry dispatches and the default step succeeds.
	f.clock.AddTime(2 * time.Minute)
	result = f.tick(t)
	assert.Equal(t, 1, result.Dispatched)

	f.waitProcessed(t, model.TierGrowth, 1)
	metrics := f.sched.Status().PerTier[model.TierGrowth]
	assert.Equal(t, 1, metrics.Completed)
	assert.Equal(t, 1, metrics.Retries)

	completed := f.events.byType(model.EventJobCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, id, completed[0].JobID)
}

func TestTick_RetriesExhausted(t *testing.T) {
	// Growth allows one retry: two transient failures exhaust the budget.
	f := newFixture(t, nil,
		jobrunner.Step{Result: core.RunResult{Retryable: true, Detail: "first failure"}},
		jobrunner.Step{Result: core.RunResult{Retryable: true, Detail: "second failure"}},
	)
	id := f.submit(t, model.TierGrowth)

	f.tick(t)
	require.Eventually(t, func() bool {
		return f.sched.Status().PerTier[model.TierGrowth].Retries == 1
	}, 2*time.Second, 5*time.Millisecond)

	f.clock.AddTime(2 * time.Minute)
	f.tick(t)

	f.waitProcessed(t, model.TierGrowth, 1)
	metrics := f.sched.Status().PerTier[model.TierGrowth]
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 0, metrics.Completed)

	failed := f.events.byType(model.EventJobFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].JobID)
	assert.Contains(t, failed[0].Detail, "retries exhausted")
	assert.Contains(t, failed[0].Detail, "second failure")
}

func TestTick_NonRetryableFailureIsTerminal(t *testing.T) {
	f := newFixture(t, nil,
		jobrunner.Step{Result: core.RunResult{Detail: "invalid credentials"}},
	)
	f.submit(t, model.TierGrowth)

	f.tick(t)

	f.waitProcessed(t, model.TierGrowth, 1)
	metrics := f.sched.Status().PerTier[model.TierGrowth]
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 0, metrics.Retries)
}

func TestTick_ProcessingWindowDefersDispatch(t *testing.T) {
	cfg := testConfig()
	starter := cfg.Tiers[model.TierStarter]
	starter.Window = model.ProcessingWindow{StartHour: 22, EndHour: 6}
	cfg.Tiers[model.TierStarter] = starter
	f := newFixture(t, cfg)

	f.submit(t, model.TierStarter)

	// Midday: outside the off-peak window. Not counted as busy either.
	result := f.tick(t)
	assert.Zero(t, result.Dispatched)
	assert.Zero(t, result.SkippedBusy)
	assert.Equal(t, 1, result.QueuedTotal)

	// 23:00 is inside the window.
	f.clock.SetTime(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))
	result = f.tick(t)
	assert.Equal(t, 1, result.Dispatched)
}

// gaugeRecorder captures statsd gauge emissions from runner goroutines.
type gaugeRecorder struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func (g *gaugeRecorder) Count(string, int64, map[string]string) {}

func (g *gaugeRecorder) Gauge(name string, value float64, _ map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gauges == nil {
		g.gauges = make(map[string]float64)
	}
	g.gauges[name] = value
}

func (g *gaugeRecorder) Timing(string, time.Duration, map[string]string) {}

func (g *gaugeRecorder) gauge(name string) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	value, ok := g.gauges[name]
	return value, ok
}

func TestTick_ReportsMeasuredCostOnSettle(t *testing.T) {
	sink := &gaugeRecorder{}
	runner := jobrunner.NewScriptedRunner(jobrunner.Step{
		Result: core.RunResult{
			Success:    true,
			ActualCost: model.ResourceCost{CPU: 2.5, Memory: 1, Network: 0.5},
		},
	})

	sched, err := service.NewScheduler(service.SchedulerOptions{
		Config:  testConfig(),
		Runner:  runner,
		Metrics: sink,
		Clock:   data.NewFixedTimeProvider(baseTime),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	_, err = sched.Submit(context.Background(), model.SubmitRequest{Tier: model.TierGrowth})
	require.NoError(t, err)
	_, err = sched.Tick(context.Background(), baseTime)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := sink.gauge("job.actual_cost")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	value, _ := sink.gauge("job.actual_cost")
	assert.InDelta(t, 4.0, value, 1e-9)
}

func TestTick_RunnerPanicSettlesAsTransientFailure(t *testing.T) {
	sched := newSchedulerWithRunner(t, panicRunner{})

	_, err := sched.Submit(context.Background(), model.SubmitRequest{Tier: model.TierGrowth})
	require.NoError(t, err)
	_, err = sched.Tick(context.Background(), baseTime)
	require.NoError(t, err)

	// The panic settles as a retryable failure and the job requeues.
	require.Eventually(t, func() bool {
		return sched.Status().PerTier[model.TierGrowth].Retries == 1
	}, 2*time.Second, 5*time.Millisecond)
}
