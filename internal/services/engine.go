package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/logger"
	"alfredoptarigan/async-cv-evaluator/internal/models"
)

// EvaluationEngine scores a candidate. Implementations must always return a
// result within the documented ranges.
type EvaluationEngine interface {
	Evaluate(ctx context.Context, in models.EvaluationInput) models.EvaluationResult
}

// SimulatedEngine is the placeholder scorer: random scores in a plausible
// band with canned feedback.
type SimulatedEngine struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedEngine uses rnd when given, a randomly seeded source otherwise.
func NewSimulatedEngine(rnd *rand.Rand) *SimulatedEngine {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedEngine{rnd: rnd}
}

// Evaluate implements EvaluationEngine.
func (e *SimulatedEngine) Evaluate(_ context.Context, in models.EvaluationInput) models.EvaluationResult {
	e.mu.Lock()
	cv := 0.7 + e.rnd.Float64()*0.2
	project := 3.5 + e.rnd.Float64()
	e.mu.Unlock()

	return models.EvaluationResult{
		CVMatchRate: roundTo(cv, 2),
		CVFeedback: "The candidate demonstrates a good foundation in backend development, with relevant skills for " +
			in.JobTitle + ". Some areas such as cloud integration and testing practices could be improved.",
		ProjectScore:    roundTo(project, 1),
		ProjectFeedback: "The project follows the required structure and demonstrates understanding of API design, though resilience and documentation can be further improved.",
		OverallSummary:  "Overall, the candidate shows strong potential and a solid understanding of backend principles, with room to grow in production-level resilience and documentation.",
	}
}

type cvEvaluation struct {
	TechnicalSkillsScore float64 `json:"technical_skills_score"`
	ExperienceLevelScore float64 `json:"experience_level_score"`
	AchievementsScore    float64 `json:"achievements_score"`
	CulturalFitScore     float64 `json:"cultural_fit_score"`
	WeightedAverage      float64 `json:"weighted_average"`
	MatchRate            float64 `json:"match_rate"`
	Feedback             string  `json:"feedback"`
}

type projectEvaluation struct {
	CorrectnessScore   float64 `json:"correctness_score"`
	CodeQualityScore   float64 `json:"code_quality_score"`
	ResilienceScore    float64 `json:"resilience_score"`
	DocumentationScore float64 `json:"documentation_score"`
	CreativityScore    float64 `json:"creativity_score"`
	WeightedAverage    float64 `json:"weighted_average"`
	ProjectScore       float64 `json:"project_score"`
	Feedback           string  `json:"feedback"`
}

// GeminiEngine chains three LLM calls (CV, project, summary). Whenever a
// call fails or returns unusable output, that part of the result comes from
// the fallback engine instead.
type GeminiEngine struct {
	gemini        GeminiService
	fallback      EvaluationEngine
	promptBuilder *PromptBuilder
	maxRetries    int
	log           *zap.Logger
}

func NewGeminiEngine(gemini GeminiService, fallback EvaluationEngine, maxRetries int, log *zap.Logger) *GeminiEngine {
	return &GeminiEngine{
		gemini:        gemini,
		fallback:      fallback,
		promptBuilder: NewPromptBuilder(),
		maxRetries:    maxRetries,
		log:           log,
	}
}

// Evaluate implements EvaluationEngine.
func (e *GeminiEngine) Evaluate(ctx context.Context, in models.EvaluationInput) models.EvaluationResult {
	fallback := e.fallback.Evaluate(ctx, in)
	result := fallback

	cv, err := e.evaluateCV(ctx, in)
	if err != nil {
		e.log.Warn("cv evaluation failed, using fallback scores", zap.Error(err))
	} else {
		result.CVMatchRate = clamp(cv.MatchRate, models.MinCVMatchRate, models.MaxCVMatchRate)
		result.CVFeedback = cv.Feedback
	}

	project, err := e.evaluateProject(ctx, in)
	if err != nil {
		e.log.Warn("project evaluation failed, using fallback scores", zap.Error(err))
	} else {
		result.ProjectScore = clamp(project.ProjectScore, models.MinProjectScore, models.MaxProjectScore)
		result.ProjectFeedback = project.Feedback
	}

	summary, err := e.generateSummary(ctx, result, in.JobTitle)
	if err != nil {
		e.log.Warn("summary generation failed, using fallback summary", zap.Error(err))
	} else {
		result.OverallSummary = summary
	}

	return result
}

func (e *GeminiEngine) evaluateCV(ctx context.Context, in models.EvaluationInput) (*cvEvaluation, error) {
	prompt := e.promptBuilder.BuildCVEvaluationPrompt(in.CVText, in.Context, in.JobTitle)
	e.log.Debug("cv evaluation prompt built", zap.Int("length", len(prompt)))

	response, err := e.gemini.GenerateTextWithRetry(ctx, prompt, 0.3, e.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CV evaluation: %w", err)
	}

	var result cvEvaluation
	if err := parseJSONResponse(response, &result); err != nil {
		return nil, fmt.Errorf("failed to parse CV evaluation response: %w", err)
	}
	if strings.TrimSpace(result.Feedback) == "" {
		return nil, fmt.Errorf("cv evaluation has no feedback")
	}

	return &result, nil
}

func (e *GeminiEngine) evaluateProject(ctx context.Context, in models.EvaluationInput) (*projectEvaluation, error) {
	prompt := e.promptBuilder.BuildProjectEvaluationPrompt(in.ReportText, in.Context)
	e.log.Debug("project evaluation prompt built", zap.Int("length", len(prompt)))

	response, err := e.gemini.GenerateTextWithRetry(ctx, prompt, 0.3, e.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate project evaluation: %w", err)
	}

	var result projectEvaluation
	if err := parseJSONResponse(response, &result); err != nil {
		return nil, fmt.Errorf("failed to parse project evaluation response: %w", err)
	}
	if strings.TrimSpace(result.Feedback) == "" {
		return nil, fmt.Errorf("project evaluation has no feedback")
	}

	return &result, nil
}

func (e *GeminiEngine) generateSummary(ctx context.Context, partial models.EvaluationResult, jobTitle string) (string, error) {
	prompt := e.promptBuilder.BuildFinalSummaryPrompt(
		partial.CVFeedback,
		partial.ProjectFeedback,
		partial.CVMatchRate,
		partial.ProjectScore,
		jobTitle,
	)

	summary, err := e.gemini.GenerateTextWithRetry(ctx, prompt, 0.5, e.maxRetries)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

func parseJSONResponse(response string, target any) error {
	jsonStr := extractJSON(response)

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w (response: %s)", err, logger.TruncateForLog(response, 200))
	}

	return nil
}

// extractJSON pulls the outermost JSON object or array out of text that may
// be wrapped in markdown fences.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	startArr := strings.Index(text, "[")
	endArr := strings.LastIndex(text, "]")
	if startArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
