package service

import "github.com/Rainking6693/autobolt-scheduler/internal/domain/model"

// defaultArchiveCapacity bounds the terminal archive when no capacity is
// configured.
const defaultArchiveCapacity = 500

// terminalArchive is a bounded FIFO store of completed and failed jobs.
// When full, the oldest entry is evicted. Access is guarded by the
// scheduler lock.
type terminalArchive struct {
	capacity int
	order    []string
	jobs     map[string]*model.Job
}

func newTerminalArchive(capacity int) *terminalArchive {
	if capacity <= 0 {
		capacity = defaultArchiveCapacity
	}
	return &terminalArchive{
		capacity: capacity,
		jobs:     make(map[string]*model.Job, capacity),
	}
}

func (a *terminalArchive) add(job *model.Job) {
	if _, ok := a.jobs[job.ID]; ok {
		a.jobs[job.ID] = job
		return
	}
	for len(a.order) >= a.capacity {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.jobs, oldest)
	}
	a.order = append(a.order, job.ID)
	a.jobs[job.ID] = job
}

func (a *terminalArchive) contains(id string) bool {
	_, ok := a.jobs[id]
	return ok
}

func (a *terminalArchive) len() int {
	return len(a.order)
}

// all returns archived jobs oldest first.
func (a *terminalArchive) all() []*model.Job {
	out := make([]*model.Job, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.jobs[id])
	}
	return out
}
