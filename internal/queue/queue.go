package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long an idle worker waits for a job before exiting
const DefaultIdleTimeout = time.Minute

// ErrShutdown is returned for jobs added after the queue has been shut down
var ErrShutdown = errors.New("queue has been shutdown")

// Handler processes a single job
type Handler func(ctx context.Context, data interface{}) (interface{}, error)

// Queue is an elastic worker queue. A job is handed to an idle worker if there is one,
// otherwise a new worker is started, up to maxWorkers if that is above zero.
// Workers that stay idle for idleTimeout exit.
type Queue struct {
	ctx         context.Context
	handler     Handler
	jobs        chan job
	maxWorkers  int
	idleTimeout time.Duration

	mu      sync.Mutex
	workers int
	stopped bool
	slots   chan struct{}
	wg      sync.WaitGroup
}

type job struct {
	ctx    context.Context
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue. The queue shuts down when ctx is done.
func New(ctx context.Context, maxWorkers int, idleTimeout time.Duration, handler Handler) *Queue {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	q := &Queue{
		ctx:         ctx,
		handler:     handler,
		jobs:        make(chan job),
		maxWorkers:  maxWorkers,
		idleTimeout: idleTimeout,
	}

	if maxWorkers > 0 {
		q.slots = make(chan struct{}, maxWorkers)
	}

	return q
}

// Run blocks until the queue's context is done, then waits for running jobs to finish
func (q *Queue) Run() {
	<-q.ctx.Done()

	// No worker is started once stopped is set
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	q.wg.Wait()
}

// Workers returns the number of live workers
func (q *Queue) Workers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.workers
}

func (q *Queue) worker(first job) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		q.workers--
		q.mu.Unlock()

		if q.slots != nil {
			<-q.slots
		}
	}()

	q.execute(first)

	for {
		idle := time.NewTimer(q.idleTimeout)
		select {
		case j := <-q.jobs:
			idle.Stop()
			q.execute(j)
		case <-idle.C:
			return
		case <-q.ctx.Done():
			idle.Stop()
			return
		}
	}
}

func (q *Queue) execute(j job) {
	result, err := q.handle(j)

	if j.result != nil {
		j.result <- jobResult{
			result: result,
			err:    err,
		}
	}
}

// handle runs the handler, converting a panic into an error for that job only
func (q *Queue) handle(j job) (result interface{}, err error) {
	if err := j.ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic processing job: %v", r)
		}
	}()

	return q.handler(j.ctx, j.data)
}

func (q *Queue) dispatch(j job) error {
	if q.ctx.Err() != nil {
		return ErrShutdown
	}

	// Hand the job to an idle worker
	select {
	case q.jobs <- j:
		return nil
	default:
	}

	if q.slots == nil {
		return q.spawn(j)
	}

	// Start a new worker if below the limit, otherwise wait for a worker to free up
	select {
	case q.slots <- struct{}{}:
		if err := q.spawn(j); err != nil {
			<-q.slots
			return err
		}
		return nil
	case q.jobs <- j:
		return nil
	case <-j.ctx.Done():
		return j.ctx.Err()
	case <-q.ctx.Done():
		return ErrShutdown
	}
}

// spawn starts a worker for j unless the queue is shutting down
func (q *Queue) spawn(j job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || q.ctx.Err() != nil {
		return ErrShutdown
	}

	q.workers++
	q.wg.Add(1)
	go q.worker(j)

	return nil
}

// Process adds a job to the queue, waits for it to process, and returns the result
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	resultChan := make(chan jobResult, 1)

	err := q.dispatch(job{
		ctx:    ctx,
		data:   data,
		result: resultChan,
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}

		return result.result, nil
	}
}

// Submit adds a job to the queue without waiting for its result.
// The handler is responsible for reporting the outcome.
func (q *Queue) Submit(ctx context.Context, data interface{}) error {
	return q.dispatch(job{
		ctx:  ctx,
		data: data,
	})
}
