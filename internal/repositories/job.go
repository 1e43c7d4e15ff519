package repositories

import (
	"fmt"
	"sync"
	"time"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

// JobStore owns every Job for the lifetime of the process. Reads return
// copies; the two Complete methods are the only writes after Create.
type JobStore interface {
	Create(id string) (models.Job, error)
	Get(id string) (models.Job, error)
	CompleteWithResult(id string, result models.EvaluationResult, contextExcerpt string) error
	CompleteWithError(id string, message string) error
}

type memoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
	now  func() time.Time
}

func NewJobStore() JobStore {
	return &memoryJobStore{
		jobs: make(map[string]models.Job),
		now:  time.Now,
	}
}

// Create implements JobStore.
func (s *memoryJobStore) Create(id string) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return models.Job{}, fmt.Errorf("create job %s: %w", id, models.ErrDuplicateJobID)
	}

	job := models.Job{
		ID:        id,
		Status:    models.JobStatusProcessing,
		CreatedAt: s.now(),
	}
	s.jobs[id] = job

	return job, nil
}

// Get implements JobStore.
func (s *memoryJobStore) Get(id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("get job %s: %w", id, models.ErrJobNotFound)
	}

	return snapshot(job), nil
}

// CompleteWithResult implements JobStore.
func (s *memoryJobStore) CompleteWithResult(id string, result models.EvaluationResult, contextExcerpt string) error {
	return s.finish(id, func(job *models.Job) {
		job.Status = models.JobStatusCompleted
		job.Result = &result
		job.ContextExcerpt = contextExcerpt
	})
}

// CompleteWithError implements JobStore.
func (s *memoryJobStore) CompleteWithError(id string, message string) error {
	return s.finish(id, func(job *models.Job) {
		job.Status = models.JobStatusError
		job.Message = message
	})
}

// finish applies the terminal update to a local copy and swaps it into the
// map in one assignment under the write lock.
func (s *memoryJobStore) finish(id string, apply func(job *models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("finish job %s: %w (job not found)", id, models.ErrInvalidTransition)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("finish job %s: %w (already %s)", id, models.ErrInvalidTransition, job.Status)
	}

	apply(&job)
	job.FinishedAt = s.now()
	s.jobs[id] = job

	return nil
}

func snapshot(job models.Job) models.Job {
	if job.Result != nil {
		result := *job.Result
		job.Result = &result
	}
	return job
}
