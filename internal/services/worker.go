package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

var (
	ErrQueueFull     = errors.New("evaluation queue is full")
	ErrWorkerStopped = errors.New("evaluation worker is stopped")
)

// TaskProcessor is what the worker drives; *Pipeline implements it.
type TaskProcessor interface {
	Process(ctx context.Context, task models.EvaluationTask)
	Reject(task models.EvaluationTask, reason string)
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(task models.EvaluationTask) error
}

type worker struct {
	processor   TaskProcessor
	jobQueue    chan models.EvaluationTask
	concurrency int
	log         *zap.Logger

	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewWorker(processor TaskProcessor, concurrency, queueSize int, log *zap.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &worker{
		processor:   processor,
		jobQueue:    make(chan models.EvaluationTask, queueSize),
		concurrency: concurrency,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting evaluation workers", zap.Int("concurrency", w.concurrency), zap.Int("queue_size", cap(w.jobQueue)))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
}

// Stop implements Worker. Running evaluations finish; tasks still queued are
// rejected so their jobs do not stay in processing.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping evaluation workers")

		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()

		close(w.stopChan)
		w.wg.Wait()

		for {
			select {
			case task := <-w.jobQueue:
				w.processor.Reject(task, "Evaluation cancelled: service is shutting down")
			default:
				w.log.Info("evaluation workers stopped")
				return
			}
		}
	})
}

// Enqueue implements Worker. It never blocks the caller.
func (w *worker) Enqueue(task models.EvaluationTask) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrWorkerStopped
	}

	select {
	case w.jobQueue <- task:
		w.log.Debug("job enqueued", zap.String("job_id", task.JobID), zap.Int("queued", len(w.jobQueue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))
	log.Debug("worker started")

	for {
		// a stop request wins over queued work
		select {
		case <-w.stopChan:
			log.Debug("worker stopped")
			return
		default:
		}

		select {
		case <-w.stopChan:
			log.Debug("worker stopped")
			return
		case task := <-w.jobQueue:
			log.Debug("worker picked up job", zap.String("job_id", task.JobID))
			w.processor.Process(ctx, task)
		}
	}
}
