package queue_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ibooker/imgloader/internal/queue"
)

func setupQueue(maxWorkers int, idleTimeout time.Duration, f queue.Handler) (*queue.Queue, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	workerQueue := queue.New(ctx, maxWorkers, idleTimeout, f)
	go workerQueue.Run()
	return workerQueue, cancel
}

func TestProcess(t *testing.T) {
	workerQueue, cancel := setupQueue(5, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		stringData, _ := data.(string)
		return stringData, nil
	})

	defer cancel()

	data, err := workerQueue.Process(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}

	if data != "test" {
		t.Fatal("wrong data")
	}
}

func TestShutdown(t *testing.T) {
	workerQueue, cancel := setupQueue(5, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		return "", nil
	})

	cancel()

	_, err := workerQueue.Process(context.Background(), "test")
	if err == nil || err.Error() != "queue has been shutdown" {
		t.FailNow()
	}

	if err := workerQueue.Submit(context.Background(), "test"); err != queue.ErrShutdown {
		t.Fatalf("wrong error %v", err)
	}
}

func TestTaskWithError(t *testing.T) {
	errorQueue, cancel := setupQueue(5, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		return nil, fmt.Errorf("custom error")
	})

	defer cancel()
	_, err := errorQueue.Process(context.Background(), "test")

	if err == nil || err.Error() != "custom error" {
		t.Fatal("Invalid error")
	}
}

func TestTaskWithPanic(t *testing.T) {
	panicQueue, cancel := setupQueue(0, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		panic("allocation failed")
	})

	defer cancel()
	_, err := panicQueue.Process(context.Background(), "test")

	if err == nil || err.Error() != "panic processing job: allocation failed" {
		t.Fatalf("Invalid error %v", err)
	}

	// The queue keeps working after a panicking job
	if _, err := panicQueue.Process(context.Background(), "test"); err == nil {
		t.Fatal("no error")
	}
}

func TestTaskWithCancelledContext(t *testing.T) {
	errorQueue, cancel := setupQueue(5, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		return nil, fmt.Errorf("custom error")
	})

	defer cancel()

	ctx, ctxCancel := context.WithCancel(context.Background())
	ctxCancel()

	_, err := errorQueue.Process(ctx, "test")

	if err == nil || err.Error() != "context canceled" {
		t.Fatal("Invalid error")
	}
}

func TestElasticWorkers(t *testing.T) {
	release := make(chan struct{})
	var running int32

	workerQueue, cancel := setupQueue(0, 50*time.Millisecond, func(ctx context.Context, data interface{}) (interface{}, error) {
		atomic.AddInt32(&running, 1)
		<-release
		return nil, nil
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerQueue.Process(context.Background(), nil)
		}()
	}

	// Every job runs concurrently on its own worker
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&running) < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d jobs running", atomic.LoadInt32(&running))
		}
		time.Sleep(5 * time.Millisecond)
	}

	if workers := workerQueue.Workers(); workers != 10 {
		t.Errorf("wrong worker count %d", workers)
	}

	close(release)
	wg.Wait()

	// Idle workers retire
	deadline = time.Now().Add(2 * time.Second)
	for workerQueue.Workers() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d workers still running", workerQueue.Workers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMaxWorkers(t *testing.T) {
	release := make(chan struct{})
	var running, peak int32

	workerQueue, cancel := setupQueue(2, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil, nil
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := workerQueue.Submit(context.Background(), nil); err != nil {
				t.Error(err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if peak > 2 {
		t.Errorf("%d jobs ran concurrently with a limit of 2", peak)
	}
}

func TestSubmit(t *testing.T) {
	done := make(chan interface{}, 1)
	workerQueue, cancel := setupQueue(0, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		done <- data
		return nil, nil
	})
	defer cancel()

	if err := workerQueue.Submit(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}

	select {
	case data := <-done:
		if data != "test" {
			t.Fatalf("wrong data %v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job not executed")
	}
}

func TestSubmitDuringShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var executed int64
	workerQueue := queue.New(ctx, 0, time.Minute, func(ctx context.Context, data interface{}) (interface{}, error) {
		atomic.AddInt64(&executed, 1)
		return nil, nil
	})

	stopped := make(chan struct{})
	go func() {
		workerQueue.Run()
		close(stopped)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := workerQueue.Submit(context.Background(), "test"); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	after := atomic.LoadInt64(&executed)
	wg.Wait()

	if atomic.LoadInt64(&executed) != after {
		t.Error("job executed after the queue stopped")
	}

	if workerQueue.Workers() != 0 {
		t.Errorf("%d workers left after shutdown", workerQueue.Workers())
	}
}
