// Package dispatch runs callbacks one at a time on a single goroutine.
//
// Every delivery to a sink goes through a Dispatcher, so a sink is never called
// from two goroutines at once.
package dispatch

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ibooker/imgloader/internal/logger"
)

// Dispatcher is a FIFO of callbacks executed by Run. Posting never blocks.
type Dispatcher struct {
	log *logger.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	// id of the goroutine executing Run
	runner atomic.Uint64
}

// New returns a Dispatcher. Callbacks are executed once Run is started.
func New(log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		log:    log,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Run executes posted callbacks until Close is called
func (d *Dispatcher) Run() {
	d.runner.Store(goid())
	defer d.runner.Store(0)

	for {
		select {
		case <-d.notify:
			d.drain()
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if d.closed || len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}

		fn := d.pending[0]
		d.pending[0] = nil
		d.pending = d.pending[1:]
		d.mu.Unlock()

		d.execute(fn)
	}
}

func (d *Dispatcher) execute(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			d.log.Errorw("panic in delivery callback",
				"error", err,
				"stacktrace", string(debug.Stack()),
			)
		}
	}()

	fn()
}

// Post queues fn for execution. It reports false, dropping fn, once the dispatcher is closed.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}

	return true
}

// Do posts fn and waits until it has been executed. It reports false if fn was dropped.
// Called from a callback, Do executes fn right away instead.
func (d *Dispatcher) Do(fn func()) bool {
	if d.onRunner() {
		if !d.Alive() {
			return false
		}
		d.execute(fn)
		return true
	}

	executed := make(chan struct{})
	if !d.Post(func() {
		defer close(executed)
		fn()
	}) {
		return false
	}

	select {
	case <-executed:
		return true
	case <-d.done:
		return false
	}
}

// Flush waits until every callback posted before it has been executed.
// Called from a callback it returns immediately.
func (d *Dispatcher) Flush() {
	d.Do(func() {})
}

// Pending returns the number of callbacks waiting to be executed
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Alive reports whether the dispatcher still accepts callbacks
func (d *Dispatcher) Alive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

// Close stops the dispatcher and drops every pending callback
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.pending = nil
		d.mu.Unlock()

		close(d.done)
	})
}

func (d *Dispatcher) onRunner() bool {
	runner := d.runner.Load()
	return runner != 0 && runner == goid()
}

// goid parses the id of the calling goroutine from the "goroutine N [" stack header
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}
