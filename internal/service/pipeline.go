// Package service wires chunking, indexing, retrieval and generation into the
// question answering pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ragqa/internal/answer"
	"ragqa/internal/domain"
	"ragqa/internal/logger"
	"ragqa/internal/metrics"
	"ragqa/internal/retriever"
	"ragqa/internal/vectorstore"
)

// Options tunes a Pipeline. Zero values fall back to the defaults below.
type Options struct {
	TopK              int
	MaxTopK           int
	EmbedTimeout      time.Duration
	ChatTimeout       time.Duration
	OverviewSentences int
	Logger            logger.Logger
	Metrics           *metrics.Recorder
}

// Deps are the capabilities a Pipeline is assembled from.
type Deps struct {
	Source     domain.DocumentSource
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	ChatModel  domain.ChatModel
	Stores     vectorstore.Factory
	Summarizer domain.Summarizer
}

// Pipeline answers questions over a single document. The index is built on
// first use and replaced only by Rebuild.
type Pipeline struct {
	deps      Deps
	opts      Options
	log       logger.Logger
	metrics   *metrics.Recorder
	retriever *retriever.Retriever
	synth     *answer.Synthesizer

	builds singleflight.Group
	// buildMu serializes builds. index and status change only while it is held.
	buildMu sync.Mutex

	mu     sync.RWMutex
	index  *vectorstore.Index
	status domain.Status
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = vectorstore.DefaultMaxTopK
	}
	if opts.OverviewSentences <= 0 {
		opts.OverviewSentences = 3
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		deps:    deps,
		opts:    opts,
		log:     log,
		metrics: opts.Metrics,
		retriever: retriever.New(deps.Embedder,
			retriever.WithTimeout(opts.EmbedTimeout),
			retriever.WithLogger(log.With("component", "retriever")),
			retriever.WithMetrics(opts.Metrics),
		),
		synth: answer.New(deps.ChatModel,
			answer.WithTimeout(opts.ChatTimeout),
			answer.WithLogger(log.With("component", "synthesizer")),
			answer.WithMetrics(opts.Metrics),
		),
	}
}

// Query answers q with the configured number of passages.
func (p *Pipeline) Query(ctx context.Context, q string) (domain.Result, error) {
	return p.QueryTopK(ctx, q, p.opts.TopK)
}

// QueryTopK answers q using up to k passages; k <= 0 uses the configured default.
func (p *Pipeline) QueryTopK(ctx context.Context, q string, k int) (domain.Result, error) {
	start := time.Now()
	q = strings.TrimSpace(q)
	if q == "" {
		p.metrics.ObserveQuery(metrics.OutcomeRejected, time.Since(start))
		return domain.Result{}, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = p.opts.TopK
	}
	if err := p.ensureIndex(ctx); err != nil {
		p.metrics.ObserveQuery(metrics.OutcomeFailed, time.Since(start))
		return domain.Result{}, err
	}

	p.mu.RLock()
	if p.index == nil {
		// A rebuild dropped the collection after ensureIndex returned.
		p.mu.RUnlock()
		p.metrics.ObserveQuery(metrics.OutcomeFailed, time.Since(start))
		return domain.Result{}, fmt.Errorf("%w: %w", domain.ErrIndexBuild, vectorstore.ErrStoreReset)
	}
	passages := p.retriever.Retrieve(ctx, p.index, q, k)
	p.mu.RUnlock()

	reply := p.synth.Synthesize(ctx, q, passages)
	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}
	p.metrics.ObserveQuery(metrics.OutcomeAnswered, time.Since(start))
	p.log.Debug("query answered", "passages", len(passages), "elapsed", time.Since(start))
	return domain.Result{Answer: reply, RetrievedDocs: passages}, nil
}

// ensureIndex builds the index if there is none. Concurrent callers share one
// build and observe the same outcome; a failure leaves no index so the next
// call retries.
func (p *Pipeline) ensureIndex(ctx context.Context) error {
	p.mu.RLock()
	ready := p.index != nil
	p.mu.RUnlock()
	if ready {
		return nil
	}
	// The build is shared, so one caller going away must not cancel it for the rest.
	buildCtx := context.WithoutCancel(ctx)
	_, err, _ := p.builds.Do("index", func() (any, error) {
		p.buildMu.Lock()
		defer p.buildMu.Unlock()
		if p.index != nil {
			return nil, nil
		}
		_, err := p.rebuild(buildCtx)
		return nil, err
	})
	return err
}

// Rebuild reloads the document and replaces the index. Queries never see a
// partially built index. When the new build cannot disturb the serving one
// (a fresh in-memory store and an embedder with a fixed vector space) queries
// keep running against the old index until the swap. Otherwise they wait.
// On failure the previous index keeps serving unless its collection was
// already dropped, in which case the pipeline goes back to not ready.
func (p *Pipeline) Rebuild(ctx context.Context) (domain.Status, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()
	return p.rebuild(ctx)
}

// Status reports the current index state.
func (p *Pipeline) Status() domain.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// rebuild must be called with buildMu held.
func (p *Pipeline) rebuild(ctx context.Context) (domain.Status, error) {
	store := p.deps.Stores()
	exclusive := vectorstore.IsShared(store) ||
		p.index.Uses(store) ||
		domain.IsCorpusBound(p.deps.Embedder)
	if exclusive {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	idx, status, err := p.build(ctx, store)
	if !exclusive {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	switch {
	case err == nil:
		p.index, p.status = idx, status
	case exclusive && errors.Is(err, vectorstore.ErrStoreReset):
		p.log.Warn("serving index lost its collection", "collection", store.Name())
		p.index, p.status = nil, domain.Status{}
	}
	return p.status, err
}

// build loads, chunks and indexes the document into store without touching
// the serving index.
func (p *Pipeline) build(ctx context.Context, store vectorstore.Storage) (_ *vectorstore.Index, _ domain.Status, err error) {
	start := time.Now()
	chunks := 0
	defer func() { p.metrics.ObserveBuild(err, chunks, time.Since(start)) }()

	doc, err := p.deps.Source.Load(ctx)
	if err != nil {
		p.log.Error("load document", "err", err)
		return nil, domain.Status{}, err
	}
	pieces, err := p.deps.Chunker.Chunk(doc)
	if err != nil {
		return nil, domain.Status{}, fmt.Errorf("%w: %w", domain.ErrNoChunks, err)
	}
	if len(pieces) == 0 {
		p.log.Error("document produced no chunks", "document", doc.Name)
		return nil, domain.Status{}, domain.ErrNoChunks
	}

	idx, err := vectorstore.Build(ctx, pieces, p.deps.Embedder, store, vectorstore.BuildOptions{
		EmbedTimeout: p.opts.EmbedTimeout,
		MaxTopK:      p.opts.MaxTopK,
		Logger:       p.log.With("component", "index"),
		OnEmbedFailure: func(domain.Chunk, error) {
			p.metrics.EmbedFailed("index")
		},
	})
	if err != nil {
		p.log.Error("build index", "err", err)
		return nil, domain.Status{}, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	chunks = idx.Size()

	overview := ""
	if p.deps.Summarizer != nil {
		if overview, err = p.deps.Summarizer.Summarize(doc.Content, p.opts.OverviewSentences); err != nil {
			p.log.Warn("summarize document", "err", err)
			overview, err = "", nil
		}
	}

	p.log.Info("pipeline ready", "document", doc.Name, "chunks", idx.Size(), "elapsed", time.Since(start))
	return idx, domain.Status{
		Ready:      true,
		Document:   doc.Name,
		Chunks:     idx.Size(),
		Dimension:  idx.Dimension(),
		Collection: idx.Name(),
		Overview:   overview,
		BuiltAt:    time.Now(),
	}, nil
}
