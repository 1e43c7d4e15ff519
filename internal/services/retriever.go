package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// ContextTopK is how many reference documents are requested per topic.
	ContextTopK = 2

	FallbackContext = "Backend Engineer job and case study brief context (simulated)."
)

// ReferenceStore is the similarity-search collection holding reference
// material (job descriptions, case study briefs, rubrics). Query must honor
// ctx cancellation; the retrieval timeout cannot interrupt a store that ignores it.
type ReferenceStore interface {
	Query(ctx context.Context, text string, limit int) ([]string, error)
}

// ContextRetriever resolves a topic to reference text. Retrieve never fails.
type ContextRetriever interface {
	Retrieve(ctx context.Context, topic string) string
}

// retrieval is either available text or a marker that the store could not
// answer.
type retrieval struct {
	text      string
	available bool
}

type contextRetriever struct {
	store   ReferenceStore
	timeout time.Duration
	log     *zap.Logger
}

// NewContextRetriever accepts a nil store, in which case every lookup uses
// the fallback context.
func NewContextRetriever(store ReferenceStore, timeout time.Duration, log *zap.Logger) ContextRetriever {
	return &contextRetriever{store: store, timeout: timeout, log: log}
}

// Retrieve implements ContextRetriever.
func (r *contextRetriever) Retrieve(ctx context.Context, topic string) string {
	result := r.lookup(ctx, topic)
	if !result.available {
		return FallbackContext
	}
	return result.text
}

func (r *contextRetriever) lookup(ctx context.Context, topic string) retrieval {
	if r.store == nil {
		r.log.Warn("reference store not initialized, using fallback context")
		return retrieval{}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	docs, err := r.query(ctx, topic)
	if err != nil {
		r.log.Warn("reference store unavailable, using fallback context",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return retrieval{}
	}

	return retrieval{text: strings.Join(docs, "\n\n"), available: true}
}

// query converts a panicking store client into an error so that it is
// handled like any other unavailability.
func (r *contextRetriever) query(ctx context.Context, topic string) (docs []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("reference store panicked")
			r.log.Error("reference store panic", zap.Any("panic", rec))
		}
	}()

	docs, err = r.store.Query(ctx, topic, ContextTopK)
	if err != nil {
		return nil, err
	}
	if len(docs) > ContextTopK {
		docs = docs[:ContextTopK]
	}
	return docs, nil
}
