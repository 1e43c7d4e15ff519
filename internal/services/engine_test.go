package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

func TestSimulatedEngine_ScoresStayInRange(t *testing.T) {
	engine := NewSimulatedEngine(rand.New(rand.NewPCG(1, 2)))
	in := models.EvaluationInput{JobTitle: "Backend Engineer"}

	for i := 0; i < 1000; i++ {
		result := engine.Evaluate(context.Background(), in)
		if err := result.Validate(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if result.CVMatchRate < 0.7 || result.CVMatchRate > 0.9 {
			t.Fatalf("cv_match_rate %.2f outside simulated band", result.CVMatchRate)
		}
		if result.ProjectScore < 3.5 || result.ProjectScore > 4.5 {
			t.Fatalf("project_score %.1f outside simulated band", result.ProjectScore)
		}
	}
}

func TestSimulatedEngine_DeterministicWithSeed(t *testing.T) {
	in := models.EvaluationInput{JobTitle: "Backend Engineer"}
	a := NewSimulatedEngine(rand.New(rand.NewPCG(7, 7))).Evaluate(context.Background(), in)
	b := NewSimulatedEngine(rand.New(rand.NewPCG(7, 7))).Evaluate(context.Background(), in)

	if a != b {
		t.Fatalf("expected identical results, got %#v and %#v", a, b)
	}
	if !strings.Contains(a.CVFeedback, "Backend Engineer") {
		t.Fatalf("expected job title in feedback, got %q", a.CVFeedback)
	}
}

// scriptedGemini answers by prompt kind.
type scriptedGemini struct {
	cv, project, summary string
	err                  error
	prompts              []string
}

func (s *scriptedGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not used")
}

func (s *scriptedGemini) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return s.GenerateTextWithRetry(ctx, prompt, temperature, 1)
}

func (s *scriptedGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.Contains(prompt, "CANDIDATE CV:"):
		return s.cv, nil
	case strings.Contains(prompt, "CANDIDATE'S PROJECT REPORT:"):
		return s.project, nil
	default:
		return s.summary, nil
	}
}

func TestGeminiEngine_ParsesAndClampsScores(t *testing.T) {
	gemini := &scriptedGemini{
		cv:      "```json\n{\"match_rate\": 1.4, \"feedback\": \"Strong Go background.\"}\n```",
		project: "Here you go: {\"project_score\": 7, \"feedback\": \"Well structured.\"}",
		summary: "  Hire.  ",
	}
	engine := NewGeminiEngine(gemini, NewSimulatedEngine(rand.New(rand.NewPCG(1, 1))), 1, zap.NewNop())

	result := engine.Evaluate(context.Background(), models.EvaluationInput{
		JobTitle: "Backend Engineer",
		CVText:   "cv",
		Context:  "reference context",
	})

	if result.CVMatchRate != 1 || result.ProjectScore != 5 {
		t.Fatalf("expected clamped scores, got %.2f / %.2f", result.CVMatchRate, result.ProjectScore)
	}
	if result.CVFeedback != "Strong Go background." || result.ProjectFeedback != "Well structured." || result.OverallSummary != "Hire." {
		t.Fatalf("unexpected feedback %#v", result)
	}
	if len(gemini.prompts) != 3 || !strings.Contains(gemini.prompts[0], "reference context") {
		t.Fatalf("expected 3 prompts with context injected, got %d", len(gemini.prompts))
	}
}

func TestGeminiEngine_FallsBackOnFailure(t *testing.T) {
	fallback := &fakeEngine{result: validResult()}
	engine := NewGeminiEngine(&scriptedGemini{err: errors.New("quota exceeded")}, fallback, 1, zap.NewNop())

	result := engine.Evaluate(context.Background(), models.EvaluationInput{JobTitle: "Backend Engineer"})
	if result != validResult() {
		t.Fatalf("expected fallback result, got %#v", result)
	}
}

func TestGeminiEngine_FallsBackOnUnparseableOutput(t *testing.T) {
	gemini := &scriptedGemini{cv: "no json here", project: "{\"project_score\": 4}", summary: "ok"}
	engine := NewGeminiEngine(gemini, &fakeEngine{result: validResult()}, 1, zap.NewNop())

	result := engine.Evaluate(context.Background(), models.EvaluationInput{})
	if result.CVMatchRate != validResult().CVMatchRate || result.CVFeedback != validResult().CVFeedback {
		t.Fatalf("expected fallback cv part, got %#v", result)
	}
	// project feedback missing, so the fallback project part is kept too
	if result.ProjectScore != validResult().ProjectScore {
		t.Fatalf("expected fallback project part, got %#v", result)
	}
	if err := result.Validate(); err != nil {
		t.Fatalf("result must stay valid: %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "prefix {\"a\":{\"b\":2}} suffix", want: `{"a":{"b":2}}`},
		{in: "[1,2,3]", want: "[1,2,3]"},
		{in: "plain text", want: "plain text"},
	}

	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPromptBuilder_ListsRubricKeys(t *testing.T) {
	pb := NewPromptBuilder()

	cvPrompt := pb.BuildCVEvaluationPrompt("", "", "Backend Engineer")
	for _, c := range cvRubric {
		if !strings.Contains(cvPrompt, `"`+c.key+`"`) {
			t.Fatalf("cv prompt is missing %s", c.key)
		}
	}
	if !strings.Contains(cvPrompt, "(none provided)") || !strings.Contains(cvPrompt, `"match_rate"`) {
		t.Fatalf("unexpected cv prompt:\n%s", cvPrompt)
	}

	projectPrompt := pb.BuildProjectEvaluationPrompt("report", "brief")
	for _, c := range projectRubric {
		if !strings.Contains(projectPrompt, `"`+c.key+`"`) {
			t.Fatalf("project prompt is missing %s", c.key)
		}
	}
	if !strings.HasSuffix(projectPrompt, "}") || strings.Contains(projectPrompt, "improve>\",\n}") {
		t.Fatalf("schema must end without a trailing comma:\n%s", projectPrompt)
	}
}
