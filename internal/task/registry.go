package task

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ibooker/imgloader/internal/logger"
	"github.com/ibooker/imgloader/internal/metrics"
	"github.com/ibooker/imgloader/internal/queue"
)

// Runner executes a task on a pool worker. It is responsible for calling Complete before delivering.
type Runner func(ctx context.Context, t *Task)

// Registry tracks the live tasks of one loader and runs them on an elastic worker pool
type Registry struct {
	ctx    context.Context
	log    *logger.Logger
	queue  *queue.Queue
	run    Runner
	capped bool

	mu     sync.Mutex
	seq    uint64
	live   map[uuid.UUID]*Task
	parked []Request
}

// New creates a Registry. maxWorkers <= 0 lets the pool grow without bound.
func New(ctx context.Context, log *logger.Logger, maxWorkers int, idleTimeout time.Duration, run Runner) *Registry {
	r := &Registry{
		ctx:    ctx,
		log:    log,
		run:    run,
		capped: maxWorkers > 0,
		live:   make(map[uuid.UUID]*Task),
	}

	r.queue = queue.New(ctx, maxWorkers, idleTimeout, r.handle)

	return r
}

// Wait blocks until the registry's context is done and every running task has returned
func (r *Registry) Wait() {
	r.queue.Run()
}

func (r *Registry) handle(ctx context.Context, data interface{}) (interface{}, error) {
	t, ok := data.(*Task)
	if !ok {
		return nil, errors.New("invalid task")
	}

	if !t.transition(Running, Pending) {
		return nil, nil
	}

	r.run(ctx, t)
	return nil, nil
}

// Submit registers a new task for req and hands it to the pool
func (r *Registry) Submit(req Request) *Task {
	t := newTask(r.ctx, req)

	r.mu.Lock()
	r.seq++
	t.seq = r.seq
	r.live[t.ID] = t
	r.mu.Unlock()

	metrics.TaskSubmitted()

	// A capped pool may have to wait for a free worker
	if r.capped {
		go r.enqueue(t)
	} else {
		r.enqueue(t)
	}

	return t
}

func (r *Registry) enqueue(t *Task) {
	err := r.queue.Submit(t.ctx, t)
	if err == nil {
		return
	}

	// Cancelled while waiting for a worker; CancelAll already parked it
	if t.State() == Cancelled {
		return
	}

	r.log.Warnw("dropping task", "task-id", t.ID.String(), "url", t.Request.URL, "error", err)
	r.Complete(t)
}

// Complete marks t completed and removes it from the registry.
// It reports false if t was cancelled, in which case nothing may be delivered for it.
func (r *Registry) Complete(t *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !t.transition(Completed, Pending, Running) {
		return false
	}

	delete(r.live, t.ID)
	t.cancel()
	metrics.TaskFinished("completed")

	return true
}

// CancelAll cancels every live task and remembers its request for ResubmitAll.
// It returns the number of cancelled tasks.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancelled := r.cancelLive()

	// Resubmit in the order the requests were made
	sort.Slice(cancelled, func(i, j int) bool {
		return cancelled[i].seq < cancelled[j].seq
	})
	for _, t := range cancelled {
		r.parked = append(r.parked, t.Request)
	}

	return len(cancelled)
}

// Shutdown cancels every live task and forgets the parked requests.
// It returns the number of cancelled tasks.
func (r *Registry) Shutdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parked = nil
	return len(r.cancelLive())
}

// cancelLive empties the registry. r.mu must be held.
func (r *Registry) cancelLive() []*Task {
	cancelled := make([]*Task, 0, len(r.live))
	for id, t := range r.live {
		if t.transition(Cancelled, Pending, Running) {
			t.cancel()
			metrics.TaskFinished("cancelled")
			cancelled = append(cancelled, t)
		}
		delete(r.live, id)
	}

	return cancelled
}

// ResubmitAll submits a fresh task for every request cancelled by CancelAll
func (r *Registry) ResubmitAll() []*Task {
	r.mu.Lock()
	parked := r.parked
	r.parked = nil
	r.mu.Unlock()

	tasks := make([]*Task, 0, len(parked))
	for _, req := range parked {
		tasks = append(tasks, r.Submit(req))
	}

	return tasks
}

// Len returns the number of live tasks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Parked returns the number of cancelled requests waiting for ResubmitAll
func (r *Registry) Parked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.parked)
}

// Workers returns the number of live pool workers
func (r *Registry) Workers() int {
	return r.queue.Workers()
}
