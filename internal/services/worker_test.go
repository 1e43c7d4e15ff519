package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	rejected  map[string]string
	started   chan string
	release   chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		rejected: make(map[string]string),
		started:  make(chan string, 10),
	}
}

func (f *fakeProcessor) Process(ctx context.Context, task models.EvaluationTask) {
	f.started <- task.JobID
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, task.JobID)
}

func (f *fakeProcessor) Reject(task models.EvaluationTask, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[task.JobID] = reason
}

func waitStarted(t *testing.T, p *fakeProcessor) string {
	t.Helper()
	select {
	case id := <-p.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task to start")
		return ""
	}
}

func TestWorker_ProcessesEnqueuedTasks(t *testing.T) {
	p := newFakeProcessor()
	w := NewWorker(p, 2, 10, zap.NewNop())
	w.Start(context.Background())
	defer w.Stop()

	for _, id := range []string{"a", "b", "c"} {
		if err := w.Enqueue(models.EvaluationTask{JobID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[waitStarted(t, p)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct tasks, got %v", seen)
	}
}

func TestWorker_EnqueueDoesNotBlockWhenFull(t *testing.T) {
	p := newFakeProcessor()
	p.release = make(chan struct{})
	w := NewWorker(p, 1, 1, zap.NewNop())
	w.Start(context.Background())
	defer func() {
		close(p.release)
		w.Stop()
	}()

	if err := w.Enqueue(models.EvaluationTask{JobID: "running"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitStarted(t, p)

	if err := w.Enqueue(models.EvaluationTask{JobID: "queued"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Enqueue(models.EvaluationTask{JobID: "overflow"}) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestWorker_StopRejectsQueuedTasks(t *testing.T) {
	p := newFakeProcessor()
	w := NewWorker(p, 1, 10, zap.NewNop())

	// never started, so both tasks are still queued at Stop
	for _, id := range []string{"a", "b"} {
		if err := w.Enqueue(models.EvaluationTask{JobID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	w.Stop()

	if len(p.rejected) != 2 || p.rejected["a"] == "" || p.rejected["b"] == "" {
		t.Fatalf("expected both tasks rejected, got %v", p.rejected)
	}
	if len(p.processed) != 0 {
		t.Fatalf("expected nothing processed, got %v", p.processed)
	}

	if err := w.Enqueue(models.EvaluationTask{JobID: "c"}); !errors.Is(err, ErrWorkerStopped) {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}

	// Stop is idempotent
	w.Stop()
}
