// Package notify defines the outbound notification contract for scheduler
// events.
package notify

import (
	"context"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// SeverityFor maps a scheduler event type to a default sink severity.
func SeverityFor(eventType model.EventType) string {
	switch eventType {
	case model.EventJobFailed:
		return SeverityCritical
	case model.EventSLAViolation:
		return SeverityWarning
	case model.EventPreempted, model.EventJobCompleted:
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// Sink describes a destination capable of consuming scheduler events.
type Sink interface {
	SendSchedulerEvent(ctx context.Context, event model.SchedulerEvent) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event model.SchedulerEvent) error

// SendSchedulerEvent implements the Sink interface.
func (f SinkFunc) SendSchedulerEvent(ctx context.Context, event model.SchedulerEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
