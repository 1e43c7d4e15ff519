package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/repositories"
)

const (
	// ExcerptLength is how much retrieved context is kept on a completed job.
	ExcerptLength = 200
	excerptMarker = "..."
)

type PipelineTimeouts struct {
	Load       time.Duration
	Evaluation time.Duration
}

// Pipeline runs one evaluation task from document loading to the terminal
// job write. It is the only writer of job state after creation.
type Pipeline struct {
	jobs      repositories.JobStore
	loader    DocumentLoader
	retriever ContextRetriever
	engine    EvaluationEngine
	timeouts  PipelineTimeouts
	log       *zap.Logger
}

func NewPipeline(
	jobs repositories.JobStore,
	loader DocumentLoader,
	retriever ContextRetriever,
	engine EvaluationEngine,
	timeouts PipelineTimeouts,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		jobs:      jobs,
		loader:    loader,
		retriever: retriever,
		engine:    engine,
		timeouts:  timeouts,
		log:       log,
	}
}

// Process evaluates the task and records exactly one terminal state for its
// job. It does not return an error: failures end up on the job itself.
func (p *Pipeline) Process(ctx context.Context, task models.EvaluationTask) {
	start := time.Now()
	log := p.log.With(zap.String("job_id", task.JobID))
	log.Info("evaluation started", zap.String("job_title", task.JobTitle))

	result, contextText, err := p.run(ctx, task)
	if err != nil {
		log.Error("evaluation failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		p.finishWithError(log, task.JobID, fmt.Sprintf("Evaluation failed: %v", err))
		return
	}

	if err := p.jobs.CompleteWithResult(task.JobID, result, Excerpt(contextText)); err != nil {
		log.Error("job store rejected completion", zap.Error(err))
		return
	}

	log.Info("evaluation completed",
		zap.Duration("duration", time.Since(start)),
		zap.Float64("cv_match_rate", result.CVMatchRate),
		zap.Float64("project_score", result.ProjectScore),
	)
}

// Reject marks a task's job as failed without running it.
func (p *Pipeline) Reject(task models.EvaluationTask, reason string) {
	log := p.log.With(zap.String("job_id", task.JobID))
	log.Warn("evaluation rejected", zap.String("reason", reason))
	p.finishWithError(log, task.JobID, reason)
}

func (p *Pipeline) run(ctx context.Context, task models.EvaluationTask) (result models.EvaluationResult, contextText string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("evaluation panicked",
				zap.String("job_id", task.JobID),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("unexpected failure: %v", rec)
		}
	}()

	cvText := p.load(ctx, task.CVID)
	reportText := p.load(ctx, task.ReportID)

	contextText = p.retriever.Retrieve(ctx, task.JobTitle)

	evalCtx, cancel := withOptionalTimeout(ctx, p.timeouts.Evaluation)
	defer cancel()

	result = p.engine.Evaluate(evalCtx, models.EvaluationInput{
		JobTitle:   task.JobTitle,
		CVText:     cvText,
		ReportText: reportText,
		Context:    contextText,
	})
	if err := result.Validate(); err != nil {
		return models.EvaluationResult{}, "", fmt.Errorf("invalid evaluation result: %w", err)
	}

	return result, contextText, nil
}

func (p *Pipeline) load(ctx context.Context, ref string) string {
	loadCtx, cancel := withOptionalTimeout(ctx, p.timeouts.Load)
	defer cancel()
	return p.loader.Load(loadCtx, ref)
}

func (p *Pipeline) finishWithError(log *zap.Logger, jobID, message string) {
	if err := p.jobs.CompleteWithError(jobID, message); err != nil {
		log.Error("job store rejected failure", zap.Error(err))
	}
}

// Excerpt keeps the first ExcerptLength runes of the context and appends a
// truncation marker.
func Excerpt(contextText string) string {
	return truncateRunes(contextText, ExcerptLength) + excerptMarker
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
