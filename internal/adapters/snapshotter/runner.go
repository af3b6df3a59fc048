// Package snapshotter periodically persists the scheduler's state blob for
// crash recovery.
package snapshotter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/data"
)

// StateExporter is the subset of the scheduler the snapshotter needs.
type StateExporter interface {
	ExportState() ([]byte, error)
	RestoreState(blob []byte) error
}

// Runner saves the scheduler state to the store at a fixed interval, and can
// restore a previous snapshot on startup.
type Runner struct {
	exporter StateExporter
	store    core.StateStore
	interval time.Duration
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a snapshot Runner.
type RunnerOptions struct {
	Exporter StateExporter
	Store    core.StateStore
	Interval time.Duration
	Logger   *slog.Logger
}

// NewRunner creates a snapshot runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Exporter == nil {
		return nil, errors.New("state exporter is required")
	}
	if opts.Store == nil {
		return nil, errors.New("state store is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "snapshotter")
	}

	return &Runner{
		exporter: opts.Exporter,
		store:    opts.Store,
		interval: opts.Interval,
		logger:   opts.Logger,
	}, nil
}

// RestoreOnStart loads the latest snapshot if one exists and replays it
// into the scheduler. A missing snapshot is not an error.
func (r *Runner) RestoreOnStart(ctx context.Context) error {
	blob, err := r.store.Load(ctx)
	if errors.Is(err, data.ErrNoSnapshot) {
		r.logger.InfoContext(ctx, "no scheduler snapshot to restore")
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.exporter.RestoreState(blob); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "scheduler state restored", "blob_bytes", len(blob))
	return nil
}

// Run saves snapshots until the context is cancelled, then writes one final
// snapshot on the way out.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.saveFinal()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := r.save(ctx); err != nil {
				r.logger.ErrorContext(ctx, "snapshot save failed", "error", err)
			}
		}
	}
}

func (r *Runner) save(ctx context.Context) error {
	blob, err := r.exporter.ExportState()
	if err != nil {
		return err
	}
	return r.store.Save(ctx, blob)
}

// saveFinal best-effort persists state during shutdown, with its own
// deadline since the run context is already cancelled.
func (r *Runner) saveFinal() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.save(ctx); err != nil {
		r.logger.Error("final snapshot save failed", "error", err)
		return
	}
	r.logger.Info("final scheduler snapshot saved")
}
