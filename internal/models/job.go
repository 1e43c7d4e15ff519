package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job is one evaluation run. Result and ContextExcerpt are only set when the
// job completed; Message only when it failed.
type Job struct {
	ID             string            `json:"-"`
	Status         JobStatus         `json:"status"`
	Result         *EvaluationResult `json:"result,omitempty"`
	ContextExcerpt string            `json:"context_excerpt,omitempty"`
	Message        string            `json:"message,omitempty"`
	CreatedAt      time.Time         `json:"-"`
	FinishedAt     time.Time         `json:"-"`
}

// EvaluationResult is the immutable outcome of an evaluation.
type EvaluationResult struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
}

const (
	MinCVMatchRate  = 0.0
	MaxCVMatchRate  = 1.0
	MinProjectScore = 1.0
	MaxProjectScore = 5.0
)

// Validate checks the numeric ranges and that every feedback field is set.
func (r EvaluationResult) Validate() error {
	if !inRange(r.CVMatchRate, MinCVMatchRate, MaxCVMatchRate) {
		return fmt.Errorf("cv_match_rate %.2f outside [%.0f,%.0f]", r.CVMatchRate, MinCVMatchRate, MaxCVMatchRate)
	}
	if !inRange(r.ProjectScore, MinProjectScore, MaxProjectScore) {
		return fmt.Errorf("project_score %.2f outside [%.0f,%.0f]", r.ProjectScore, MinProjectScore, MaxProjectScore)
	}
	if strings.TrimSpace(r.CVFeedback) == "" || strings.TrimSpace(r.ProjectFeedback) == "" || strings.TrimSpace(r.OverallSummary) == "" {
		return errors.New("evaluation feedback must not be empty")
	}
	return nil
}

// inRange is false for NaN, which compares false against both bounds.
func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// EvaluationTask is the unit of work handed from submission to the worker.
type EvaluationTask struct {
	JobID    string
	JobTitle string
	CVID     string
	ReportID string
}

// EvaluationInput is everything an evaluation engine sees.
type EvaluationInput struct {
	JobTitle   string
	CVText     string
	ReportText string
	Context    string
}
