package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainking6693/autobolt-scheduler/internal/adapters/jobrunner"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

func TestExportRestore_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	completedID := f.submit(t, model.TierGrowth)
	f.tick(t)
	f.waitProcessed(t, model.TierGrowth, 1)

	queuedEnterprise := f.submit(t, model.TierEnterprise)
	queuedStarter := f.submit(t, model.TierStarter)

	blob, err := f.sched.ExportState()
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	restored := newFixture(t, nil)
	require.NoError(t, restored.sched.RestoreState(blob))

	status := restored.sched.Status()
	assert.Equal(t, 1, status.QueueDepths[model.LaneHigh], "enterprise job requeued")
	assert.Equal(t, 1, status.QueueDepths[model.LaneLow], "starter job requeued")
	assert.Equal(t, 1, status.PerTier[model.TierGrowth].Completed)
	assert.Equal(t, 1, status.PerTier[model.TierGrowth].Submitted)

	// The archived job stays terminal: cancel is a no-op, not a not-found.
	require.NoError(t, restored.sched.Cancel(context.Background(), completedID))

	// The restored queued jobs are live and schedulable.
	result, err := restored.sched.Tick(context.Background(), restored.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Dispatched)

	ids := map[string]bool{queuedEnterprise: false, queuedStarter: false}
	require.Eventually(t, func() bool {
		for _, job := range restored.runner.Calls() {
			ids[job.ID] = true
		}
		return ids[queuedEnterprise] && ids[queuedStarter]
	}, 2*time.Second, 5*time.Millisecond)
}

func TestExport_RunningJobRequeuedOnRestore(t *testing.T) {
	f := newFixture(t, nil, jobrunner.Step{Delay: time.Minute})
	id := f.submit(t, model.TierGrowth)
	f.tick(t)
	require.Equal(t, 1, f.sched.Status().RunningCount)

	blob, err := f.sched.ExportState()
	require.NoError(t, err)

	restored := newFixture(t, nil)
	require.NoError(t, restored.sched.RestoreState(blob))

	status := restored.sched.Status()
	assert.Equal(t, 0, status.RunningCount)
	assert.Equal(t, 1, status.QueueDepths[model.LaneMedium])

	// Submission time survives, so accumulated wait is not lost.
	result, err := restored.sched.Tick(context.Background(), restored.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dispatched)

	require.Eventually(t, func() bool {
		calls := restored.runner.Calls()
		return len(calls) == 1 && calls[0].ID == id
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRestore_RejectedWhileExecutionsLive(t *testing.T) {
	f := newFixture(t, nil, jobrunner.Step{Delay: time.Minute})
	f.submit(t, model.TierGrowth)
	f.tick(t)

	blob, err := f.sched.ExportState()
	require.NoError(t, err)

	err = f.sched.RestoreState(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running")
}

func TestRestore_RejectsUnknownVersion(t *testing.T) {
	f := newFixture(t, nil)

	err := f.sched.RestoreState([]byte(`{"version": 99}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestRestore_RejectsMalformedBlob(t *testing.T) {
	f := newFixture(t, nil)
	require.Error(t, f.sched.RestoreState([]byte("not json")))
}

func TestExportRestore_PreservesPausedFlag(t *testing.T) {
	f := newFixture(t, nil)
	f.sched.Pause()

	blob, err := f.sched.ExportState()
	require.NoError(t, err)

	restored := newFixture(t, nil)
	require.NoError(t, restored.sched.RestoreState(blob))
	assert.True(t, restored.sched.Status().Paused)
}
