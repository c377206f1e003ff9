package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolProcessesTasks(t *testing.T) {
	var processed int64
	cfg := Config{Workers: 4, QueueSize: 16, MaxRetries: 0, RetryDelay: time.Millisecond, GracefulShutdownTimeout: time.Second}

	pool, err := New(cfg, func(ctx context.Context, task *Task) *Result {
		atomic.AddInt64(&processed, 1)
		return &Result{TaskID: task.ID, Success: true}
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pool.Start()

	const n = 10
	for i := 0; i < n; i++ {
		if err := pool.Submit(&Task{ID: fmt.Sprintf("task-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case res := <-pool.Results():
			if !res.Success {
				t.Errorf("task %s failed: %v", res.TaskID, res.Error)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	if got := atomic.LoadInt64(&processed); got != n {
		t.Errorf("processed: got %d, want %d", got, n)
	}
	stats := pool.Stats()
	if stats.TasksCompleted != n || stats.TasksFailed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	pool.Stop()
}

func TestPoolRetriesFailedTasks(t *testing.T) {
	var attempts int64
	cfg := Config{Workers: 1, QueueSize: 4, MaxRetries: 2, RetryDelay: time.Millisecond, GracefulShutdownTimeout: time.Second}

	pool, err := New(cfg, func(ctx context.Context, task *Task) *Result {
		n := atomic.AddInt64(&attempts, 1)
		if n < 3 {
			return &Result{TaskID: task.ID, Success: false, Error: errors.New("transient")}
		}
		return &Result{TaskID: task.ID, Success: true}
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pool.Start()
	defer pool.Stop()

	if err := pool.Submit(&Task{ID: "flaky"}); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-pool.Results():
		if !res.Success {
			t.Errorf("task should succeed on the final retry: %v", res.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("attempts: got %d, want 3", got)
	}
	if stats := pool.Stats(); stats.TasksRetried != 2 {
		t.Errorf("retried: got %d, want 2", stats.TasksRetried)
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	cfg := Config{Workers: 1, QueueSize: 1, GracefulShutdownTimeout: time.Second}

	pool, err := New(cfg, func(ctx context.Context, task *Task) *Result {
		<-block
		return &Result{TaskID: task.ID, Success: true}
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pool.Start()
	defer func() {
		close(block)
		pool.Stop()
	}()

	// First task occupies the worker, second fills the queue.
	if err := pool.Submit(&Task{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := pool.Submit(&Task{ID: "b"}); err != nil {
		t.Fatal(err)
	}

	if err := pool.Submit(&Task{ID: "c"}); err == nil {
		t.Error("expected rejection when queue is full")
	}
}

func TestPoolRequiresWorkerFunc(t *testing.T) {
	if _, err := New(DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil worker func")
	}
}
