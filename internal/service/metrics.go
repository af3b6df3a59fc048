package service

import (
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
)

// tierStats accumulates per-tier counters and duration sums. All updates
// happen under the scheduler lock, synchronously with state transitions.
type tierStats struct {
	Submitted         int
	Completed         int
	Failed            int
	Retries           int
	Preemptions       int
	SLAViolations     int
	CompletedInTarget int

	waitSamples    int
	waitSum        time.Duration
	processSamples int
	processSum     time.Duration
}

func (t *tierStats) recordWait(wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	t.waitSamples++
	t.waitSum += wait
}

func (t *tierStats) recordProcessing(processing time.Duration) {
	if processing < 0 {
		processing = 0
	}
	t.processSamples++
	t.processSum += processing
}

// snapshot converts the accumulator into the exported Metrics form.
func (t *tierStats) snapshot() core.Metrics {
	m := core.Metrics{
		Submitted:         t.Submitted,
		Completed:         t.Completed,
		Failed:            t.Failed,
		Retries:           t.Retries,
		Preemptions:       t.Preemptions,
		SLAViolations:     t.SLAViolations,
		CompletedInTarget: t.CompletedInTarget,
	}
	if t.waitSamples > 0 {
		m.AvgWait = t.waitSum / time.Duration(t.waitSamples)
	}
	if t.processSamples > 0 {
		m.AvgProcessing = t.processSum / time.Duration(t.processSamples)
	}
	return m
}
