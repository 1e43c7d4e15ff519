package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/repositories"
)

type EvaluationService interface {
	Submit(ctx context.Context, req models.EvaluateRequest) (models.Job, error)
	Poll(id string) (models.Job, error)
}

type evaluationService struct {
	jobs   repositories.JobStore
	worker Worker
	reject func(task models.EvaluationTask, reason string)
	newID  func() string
	log    *zap.Logger
}

// NewEvaluationService wires submission to the worker. reject is called
// when a task cannot be queued; it must move the job to a terminal state.
func NewEvaluationService(
	jobs repositories.JobStore,
	worker Worker,
	reject func(task models.EvaluationTask, reason string),
	log *zap.Logger,
) EvaluationService {
	return &evaluationService{
		jobs:   jobs,
		worker: worker,
		reject: reject,
		newID:  newJobID,
		log:    log,
	}
}

// Submit implements EvaluationService.
func (s *evaluationService) Submit(ctx context.Context, req models.EvaluateRequest) (models.Job, error) {
	task := models.EvaluationTask{
		JobTitle: strings.TrimSpace(req.JobTitle),
		CVID:     strings.TrimSpace(req.CVID),
		ReportID: strings.TrimSpace(req.ReportID),
	}
	if task.JobTitle == "" || task.CVID == "" || task.ReportID == "" {
		return models.Job{}, models.ErrValidation
	}

	task.JobID = s.newID()
	job, err := s.jobs.Create(task.JobID)
	if err != nil {
		return models.Job{}, fmt.Errorf("create job: %w", err)
	}

	if err := s.worker.Enqueue(task); err != nil {
		reason := "Evaluation could not be scheduled, please resubmit"
		if errors.Is(err, ErrWorkerStopped) {
			reason = "Evaluation could not be scheduled: service is shutting down"
		}
		s.log.Warn("enqueue failed", zap.String("job_id", task.JobID), zap.Error(err))
		s.reject(task, reason)
	}

	return job, nil
}

// Poll implements EvaluationService.
func (s *evaluationService) Poll(id string) (models.Job, error) {
	return s.jobs.Get(id)
}

// newJobID returns a time-ordered UUID so ids sort by submission time in
// logs; uniqueness is what callers rely on.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
