package services

import (
	"context"
	"sync"

	"alfredoptarigan/async-cv-evaluator/internal/models"
)

// callLog records the order in which pipeline collaborators are used.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(call string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeLoader struct {
	texts map[string]string
	log   *callLog
}

func (f *fakeLoader) Load(ctx context.Context, ref string) string {
	f.log.add("load:" + ref)
	return f.texts[ref]
}

type fakeRetriever struct {
	text string
	log  *callLog
}

func (f *fakeRetriever) Retrieve(ctx context.Context, topic string) string {
	f.log.add("retrieve:" + topic)
	return f.text
}

type fakeEngine struct {
	mu     sync.Mutex
	result models.EvaluationResult
	panic  any
	inputs []models.EvaluationInput
	log    *callLog
	block  chan struct{}
}

func (f *fakeEngine) Evaluate(ctx context.Context, in models.EvaluationInput) models.EvaluationResult {
	f.log.add("evaluate")
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.panic != nil {
		panic(f.panic)
	}
	return f.result
}

func (f *fakeEngine) lastInput() models.EvaluationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[len(f.inputs)-1]
}

type fakeReferenceStore struct {
	docs      []string
	err       error
	panic     any
	waitCtx   bool
	lastLimit int
}

func (f *fakeReferenceStore) Query(ctx context.Context, text string, limit int) ([]string, error) {
	f.lastLimit = limit
	if f.panic != nil {
		panic(f.panic)
	}
	if f.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.docs, f.err
}

func validResult() models.EvaluationResult {
	return models.EvaluationResult{
		CVMatchRate:     0.8,
		CVFeedback:      "good cv",
		ProjectScore:    4.0,
		ProjectFeedback: "good project",
		OverallSummary:  "hire",
	}
}
