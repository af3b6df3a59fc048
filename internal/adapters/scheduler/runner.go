// Package scheduler provides the adapter that drives the scheduler's tick
// loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	obserrors "github.com/Rainking6693/autobolt-scheduler/internal/observability/errors"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/metrics"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/statsd"
)

// Runner runs the scheduler tick loop at a fixed interval until its context
// is cancelled.
type Runner struct {
	scheduler core.JobScheduler
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Scheduler core.JobScheduler
	Interval  time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// NewRunner creates a new tick runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "tick_runner")
	}

	return &Runner{
		scheduler: opts.Scheduler,
		interval:  opts.Interval,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Run starts the tick loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler tick loop", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler tick loop stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			start := time.Now()
			result, err := r.scheduler.Tick(ctx, now)
			elapsed := time.Since(start)

			r.emitTickMetrics(result, elapsed, err)

			if err != nil {
				// Keep ticking; a bad pass must not kill the loop.
				r.logger.ErrorContext(ctx, "scheduler tick error", "error", err)
				continue
			}
			if result.Dispatched > 0 || result.Preemptions > 0 || result.Violations > 0 {
				r.logger.InfoContext(ctx, "scheduler tick",
					"dispatched", result.Dispatched,
					"preemptions", result.Preemptions,
					"sla_violations", result.Violations,
					"queued", result.QueuedTotal,
					"running", result.RunningTotal,
				)
			}
		}
	}
}

func (r *Runner) emitTickMetrics(result core.TickResult, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultError
	} else if result.Dispatched == 0 {
		outcome = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": outcome,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("scheduler.tick", 1, tags)

	if result.Dispatched > 0 {
		r.metrics.Count("scheduler.dispatched", int64(result.Dispatched), tags)
	}
	if result.Preemptions > 0 {
		r.metrics.Count("scheduler.preemptions", int64(result.Preemptions), nil)
	}
	if result.Violations > 0 {
		r.metrics.Count("scheduler.sla_violations", int64(result.Violations), nil)
	}

	r.metrics.Gauge("scheduler.queued", float64(result.QueuedTotal), nil)
	r.metrics.Gauge("scheduler.running", float64(result.RunningTotal), nil)

	if elapsed > 0 {
		r.metrics.Timing("scheduler.tick_duration", elapsed, metrics.CloneTags(tags))
	}
}
