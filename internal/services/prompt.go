package services

import (
	"fmt"
	"strings"
)

// criterion is one weighted rubric line; key is the JSON field the model
// must fill with a 1-5 score.
type criterion struct {
	key    string
	label  string
	weight int
	hint   string
}

var cvRubric = []criterion{
	{key: "technical_skills_score", label: "Technical Skills Match", weight: 40, hint: "backend, databases, APIs, cloud, AI/LLM exposure"},
	{key: "experience_level_score", label: "Experience Level", weight: 25, hint: "years of experience and project complexity"},
	{key: "achievements_score", label: "Relevant Achievements", weight: 20, hint: "measurable impact of past work"},
	{key: "cultural_fit_score", label: "Cultural / Collaboration Fit", weight: 15, hint: "communication, learning mindset, teamwork"},
}

var projectRubric = []criterion{
	{key: "correctness_score", label: "Correctness", weight: 30, hint: "prompt design, LLM chaining, RAG, error handling"},
	{key: "code_quality_score", label: "Code Quality & Structure", weight: 25, hint: "clean, modular, tested"},
	{key: "resilience_score", label: "Resilience & Error Handling", weight: 20, hint: "long-running jobs, retries, randomness"},
	{key: "documentation_score", label: "Documentation & Explanation", weight: 15, hint: "README clarity, trade-offs"},
	{key: "creativity_score", label: "Creativity / Bonus", weight: 10, hint: "extra features beyond requirements"},
}

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildCVEvaluationPrompt asks for a CV score against the retrieved
// reference context. match_rate is the weighted average scaled to 0-1.
func (pb *PromptBuilder) BuildCVEvaluationPrompt(cvText, referenceContext, jobTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced recruiter screening a CV for a %s position.\n\n", jobTitle)
	writeSection(&b, "REFERENCE CONTEXT (job description, scoring rubric)", referenceContext)
	writeSection(&b, "CANDIDATE CV", cvText)
	writeRubric(&b, cvRubric)
	writeSchema(&b, cvRubric,
		`"match_rate": <weighted_average * 0.2, decimal between 0 and 1>`,
		`"feedback": "<3-5 sentences on strengths and gaps>"`,
	)
	return b.String()
}

// BuildProjectEvaluationPrompt asks for a project report score between 1
// and 5.
func (pb *PromptBuilder) BuildProjectEvaluationPrompt(projectText, referenceContext string) string {
	var b strings.Builder
	b.WriteString("You are a senior engineer grading a take-home project report.\n\n")
	writeSection(&b, "REFERENCE CONTEXT (case study brief, scoring rubric)", referenceContext)
	writeSection(&b, "CANDIDATE'S PROJECT REPORT", projectText)
	writeRubric(&b, projectRubric)
	writeSchema(&b, projectRubric,
		`"project_score": <weighted_average, decimal between 1 and 5>`,
		`"feedback": "<3-5 sentences on what was done well and what to improve>"`,
	)
	return b.String()
}

// BuildFinalSummaryPrompt asks for a plain-text recommendation built from
// both partial results.
func (pb *PromptBuilder) BuildFinalSummaryPrompt(cvFeedback, projectFeedback string, cvMatchRate, projectScore float64, jobTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the hiring manager for a %s position, writing the final assessment.\n\n", jobTitle)
	writeSection(&b, "CV EVALUATION", fmt.Sprintf("Match rate: %.2f of 1.00\nFeedback: %s", cvMatchRate, orNone(cvFeedback)))
	writeSection(&b, "PROJECT EVALUATION", fmt.Sprintf("Score: %.1f of 5.0\nFeedback: %s", projectScore, orNone(projectFeedback)))
	b.WriteString("Write 3-5 sentences covering strengths, key gaps and a recommendation ")
	b.WriteString("(Strong Hire / Hire / Maybe / No Hire).\n\nReturn only the summary text, no JSON.")
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "%s:\n%s\n\n", title, orNone(body))
}

func writeRubric(b *strings.Builder, rubric []criterion) {
	b.WriteString("Score each parameter from 1 to 5:\n")
	for i, c := range rubric {
		fmt.Fprintf(b, "%d. %s (weight %d%%): %s\n", i+1, c.label, c.weight, c.hint)
	}
	b.WriteString("\n")
}

func writeSchema(b *strings.Builder, rubric []criterion, extra ...string) {
	b.WriteString("Respond with a single JSON object and nothing else:\n{\n")
	for _, c := range rubric {
		fmt.Fprintf(b, "  %q: <1-5>,\n", c.key)
	}
	b.WriteString(`  "weighted_average": <weighted average of the scores>,` + "\n")
	for i, line := range extra {
		sep := ","
		if i == len(extra)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "  %s%s\n", line, sep)
	}
	b.WriteString("}")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none provided)"
	}
	return s
}
