// Package jobrunner provides JobRunner implementations for development and
// testing. The production runner (the browser automation worker in the
// original deployment) lives outside this repository and is injected at
// bootstrap.
package jobrunner

import (
	"context"
	"sync"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// Step scripts one execution outcome for the scripted runner.
type Step struct {
	Result core.RunResult
	Err    error

	// Delay simulates execution time before the result is returned.
	Delay time.Duration
}

// ScriptedRunner replays a fixed sequence of outcomes, in order, across
// Execute calls. Once the script is exhausted every further execution
// succeeds. It is safe for concurrent use.
type ScriptedRunner struct {
	mu    sync.Mutex
	steps []Step
	calls []model.Job
}

var _ core.JobRunner = (*ScriptedRunner)(nil)

// NewScriptedRunner creates a runner that replays the given steps.
func NewScriptedRunner(steps ...Step) *ScriptedRunner {
	return &ScriptedRunner{steps: steps}
}

// Execute pops the next scripted step. It honours ctx cancellation during
// the simulated delay, reporting a non-retryable failure as a cancelled
// runner would.
func (r *ScriptedRunner) Execute(ctx context.Context, job model.Job) (core.RunResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, job)
	var step Step
	if len(r.steps) > 0 {
		step = r.steps[0]
		r.steps = r.steps[1:]
	} else {
		step = Step{Result: core.RunResult{Success: true}}
	}
	r.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return core.RunResult{Detail: "execution cancelled"}, nil
		case <-timer.C:
		}
	} else if ctx.Err() != nil {
		return core.RunResult{Detail: "execution cancelled"}, nil
	}

	return step.Result, step.Err
}

// Calls returns the jobs executed so far, in order.
func (r *ScriptedRunner) Calls() []model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Job, len(r.calls))
	copy(out, r.calls)
	return out
}
