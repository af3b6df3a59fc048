// Package eventnotifier fans scheduler events out to registered sinks.
package eventnotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name
// for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the event notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service dispatches scheduler events to all registered sinks.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs an event notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "event_notifier")
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	return &Service{
		logger: logger,
		sinks:  sinks,
	}
}

// Notify fans the event out to all sinks, delivering concurrently and
// waiting for all of them. Sink errors are logged, never propagated; a
// broken sink must not disturb scheduling.
func (s *Service) Notify(ctx context.Context, event model.SchedulerEvent) {
	if len(s.sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendSchedulerEvent(ctx, event); err != nil {
				s.logger.Error("event notifier delivery error",
					"sink", entry.Name,
					"event_type", event.Type,
					"job_id", event.JobID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
