// Package retriever turns a question into scored passages from the index.
package retriever

import (
	"context"
	"time"

	"ragqa/internal/domain"
	"ragqa/internal/logger"
	"ragqa/internal/metrics"
	"ragqa/internal/vectorstore"
)

// Retriever embeds queries and looks them up in an index. Failures of either
// step yield no passages rather than an error, so generation can still run.
type Retriever struct {
	embedder domain.Embedder
	timeout  time.Duration
	log      logger.Logger
	metrics  *metrics.Recorder
}

type Option func(*Retriever)

// WithTimeout bounds each query embedding call.
func WithTimeout(d time.Duration) Option { return func(r *Retriever) { r.timeout = d } }

func WithLogger(l logger.Logger) Option { return func(r *Retriever) { r.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(r *Retriever) { r.metrics = m } }

func New(embedder domain.Embedder, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Similarity maps a non-negative distance into (0, 1]; zero distance is 1.
func Similarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// Retrieve returns up to k passages ordered by ascending distance.
func (r *Retriever) Retrieve(ctx context.Context, idx *vectorstore.Index, query string, k int) []domain.RetrievedPassage {
	if idx.Size() == 0 || k <= 0 {
		return nil
	}
	k = min(k, idx.MaxTopK())

	embedCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	vec, err := r.embedder.Embed(embedCtx, query)
	if err != nil {
		r.log.Warn("query embedding failed", "err", err)
		r.metrics.EmbedFailed("query")
		return nil
	}

	hits, err := idx.Query(ctx, vec, k)
	if err != nil {
		r.log.Warn("index query failed", "collection", idx.Name(), "err", err)
		return nil
	}
	passages := make([]domain.RetrievedPassage, len(hits))
	for i, h := range hits {
		passages[i] = domain.RetrievedPassage{
			Content:    h.Content,
			Similarity: Similarity(h.Distance),
			Distance:   h.Distance,
		}
	}
	r.log.Debug("retrieved passages", "k", k, "found", len(passages))
	r.metrics.Retrieved(len(passages))
	return passages
}
