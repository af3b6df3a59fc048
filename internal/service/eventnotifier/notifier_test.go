package eventnotifier_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/notify"
	"github.com/Rainking6693/autobolt-scheduler/internal/service/eventnotifier"
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.SchedulerEvent
	err    error
}

func (s *recordingSink) SendSchedulerEvent(_ context.Context, event model.SchedulerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() model.SchedulerEvent {
	return model.SchedulerEvent{
		Type:      model.EventSLAViolation,
		JobID:     "job-1",
		Tier:      model.TierEnterprise,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotify_FansOutToAllSinks(t *testing.T) {
	slackSink := &recordingSink{}
	pagerSink := &recordingSink{}

	svc := eventnotifier.NewService(eventnotifier.Options{
		Logger: discardLogger(),
		Sinks: []eventnotifier.SinkRegistration{
			{Name: "slack", Sink: slackSink},
			{Name: "pagerduty", Sink: pagerSink},
		},
	})

	require.True(t, svc.Enabled())
	svc.Notify(context.Background(), testEvent())

	assert.Equal(t, 1, slackSink.count())
	assert.Equal(t, 1, pagerSink.count())
	assert.Equal(t, "job-1", slackSink.events[0].JobID)
}

func TestNotify_SinkErrorDoesNotBlockOthers(t *testing.T) {
	broken := &recordingSink{err: errors.New("webhook down")}
	healthy := &recordingSink{}

	svc := eventnotifier.NewService(eventnotifier.Options{
		Logger: discardLogger(),
		Sinks: []eventnotifier.SinkRegistration{
			{Name: "broken", Sink: broken},
			{Name: "healthy", Sink: healthy},
		},
	})

	svc.Notify(context.Background(), testEvent())

	assert.Equal(t, 1, broken.count())
	assert.Equal(t, 1, healthy.count())
}

func TestNotify_NilSinksFiltered(t *testing.T) {
	svc := eventnotifier.NewService(eventnotifier.Options{
		Logger: discardLogger(),
		Sinks: []eventnotifier.SinkRegistration{
			{Name: "empty", Sink: nil},
		},
	})

	assert.False(t, svc.Enabled())
	// Must not panic with no live sinks.
	svc.Notify(context.Background(), testEvent())
}

func TestNotify_SinkFuncAdapter(t *testing.T) {
	var got model.SchedulerEvent
	var mu sync.Mutex

	sink := notify.SinkFunc(func(_ context.Context, event model.SchedulerEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = event
		return nil
	})

	svc := eventnotifier.NewService(eventnotifier.Options{
		Logger: discardLogger(),
		Sinks:  []eventnotifier.SinkRegistration{{Sink: sink}},
	})

	svc.Notify(context.Background(), testEvent())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.EventSLAViolation, got.Type)
}
