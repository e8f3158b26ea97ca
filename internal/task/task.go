package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ibooker/imgloader/internal/raster"
)

// State is the lifecycle state of a task. Transitions only move forward.
type State int

const (
	Pending State = iota
	Running
	Cancelled
	Completed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Request is what a caller asked to load
type Request struct {
	URL    string
	Sink   raster.Sink
	Circle bool
	// Config is the loader configuration at the time of the request
	Config *raster.Config
}

// Task is a single run of a Request. A task runs at most once.
type Task struct {
	ID      uuid.UUID
	Request Request

	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64

	mu    sync.Mutex
	state State
}

func newTask(ctx context.Context, req Request) *Task {
	ctx, cancel := context.WithCancel(ctx)
	return &Task{
		ID:      uuid.New(),
		Request: req,
		ctx:     ctx,
		cancel:  cancel,
		state:   Pending,
	}
}

// State returns the current state of the task
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Context is cancelled when the task is cancelled or the registry shuts down
func (t *Task) Context() context.Context {
	return t.ctx
}

// transition moves the task from one of the given states to next
func (t *Task) transition(next State, from ...State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range from {
		if t.state == s {
			t.state = next
			return true
		}
	}

	return false
}
