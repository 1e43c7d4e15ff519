package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/repositories"
)

type fakeWorker struct {
	tasks []models.EvaluationTask
	err   error
}

func (f *fakeWorker) Start(ctx context.Context) {}
func (f *fakeWorker) Stop()                     {}
func (f *fakeWorker) Enqueue(task models.EvaluationTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func validRequest() models.EvaluateRequest {
	return models.EvaluateRequest{JobTitle: "Backend Engineer", CVID: "abc", ReportID: "def"}
}

func waitForTerminal(t *testing.T, svc EvaluationService, id string) models.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Poll(id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return models.Job{}
}

func TestEvaluationService_SubmitValidation(t *testing.T) {
	svc := NewEvaluationService(repositories.NewJobStore(), &fakeWorker{}, func(models.EvaluationTask, string) {}, zap.NewNop())

	tests := []models.EvaluateRequest{
		{},
		{CVID: "abc", ReportID: "def"},
		{JobTitle: "Backend Engineer", ReportID: "def"},
		{JobTitle: "Backend Engineer", CVID: "abc"},
		{JobTitle: "   ", CVID: "abc", ReportID: "def"},
	}

	for _, req := range tests {
		if _, err := svc.Submit(context.Background(), req); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("request %#v: expected ErrValidation, got %v", req, err)
		}
	}
}

func TestEvaluationService_SubmitReturnsProcessingImmediately(t *testing.T) {
	worker := &fakeWorker{}
	svc := NewEvaluationService(repositories.NewJobStore(), worker, func(models.EvaluationTask, string) {}, zap.NewNop())

	job, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if job.ID == "" || job.Status != models.JobStatusProcessing {
		t.Fatalf("unexpected job %#v", job)
	}
	if len(worker.tasks) != 1 || worker.tasks[0].JobID != job.ID || worker.tasks[0].CVID != "abc" {
		t.Fatalf("unexpected enqueued tasks %#v", worker.tasks)
	}

	polled, err := svc.Poll(job.ID)
	if err != nil || polled.Status != models.JobStatusProcessing {
		t.Fatalf("expected processing, got %#v err %v", polled, err)
	}
}

func TestEvaluationService_UniqueJobIDs(t *testing.T) {
	svc := NewEvaluationService(repositories.NewJobStore(), &fakeWorker{}, func(models.EvaluationTask, string) {}, zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		job, err := svc.Submit(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if seen[job.ID] {
			t.Fatalf("duplicate job id %s", job.ID)
		}
		seen[job.ID] = true
	}
}

func TestEvaluationService_EnqueueFailureFailsJob(t *testing.T) {
	store := repositories.NewJobStore()
	pipeline := NewPipeline(store, &fakeLoader{}, &fakeRetriever{}, &fakeEngine{result: validResult()}, PipelineTimeouts{}, zap.NewNop())
	svc := NewEvaluationService(store, &fakeWorker{err: ErrQueueFull}, pipeline.Reject, zap.NewNop())

	job, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	polled, _ := svc.Poll(job.ID)
	if polled.Status != models.JobStatusError || polled.Message == "" {
		t.Fatalf("expected error job, got %#v", polled)
	}
}

func TestEvaluationService_PollUnknown(t *testing.T) {
	svc := NewEvaluationService(repositories.NewJobStore(), &fakeWorker{}, func(models.EvaluationTask, string) {}, zap.NewNop())

	if _, err := svc.Poll("1700000000000"); !errors.Is(err, models.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestEvaluationService_EndToEnd(t *testing.T) {
	store := repositories.NewJobStore()
	engine := &fakeEngine{result: validResult(), block: make(chan struct{})}
	retriever := NewContextRetriever(&fakeReferenceStore{err: errors.New("chroma down")}, 0, zap.NewNop())
	pipeline := NewPipeline(store, &fakeLoader{}, retriever, engine, PipelineTimeouts{}, zap.NewNop())

	worker := NewWorker(pipeline, 2, 10, zap.NewNop())
	worker.Start(context.Background())
	defer worker.Stop()

	svc := NewEvaluationService(store, worker, pipeline.Reject, zap.NewNop())

	job, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err := svc.Poll(job.ID)
	if err != nil || pending.Status != models.JobStatusProcessing {
		t.Fatalf("expected processing, got %#v err %v", pending, err)
	}

	close(engine.block)

	done := waitForTerminal(t, svc, job.ID)
	if done.Status != models.JobStatusCompleted {
		t.Fatalf("expected completed, got %#v", done)
	}
	if done.ContextExcerpt != FallbackContext+"..." {
		t.Fatalf("unexpected excerpt %q", done.ContextExcerpt)
	}

	again, _ := svc.Poll(job.ID)
	if !reflect.DeepEqual(done, again) {
		t.Fatalf("repeated polls differ: %#v vs %#v", done, again)
	}
}
