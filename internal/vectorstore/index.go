// Package vectorstore builds and queries the similarity index over chunk
// embeddings. Backends live in the memory and qdrant subpackages.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/logger"
	"ragqa/internal/vectorstore/memory"
	"ragqa/internal/vectorstore/qdrant"
)

// DefaultMaxTopK bounds how many hits a single query may return.
const DefaultMaxTopK = 10

// Factory creates the Storage a new index is built into.
type Factory func() Storage

// NewFactory returns the Factory for the configured backend. The memory
// backend gets a fresh instance per build so a rebuild never touches the
// index that is currently serving queries. Qdrant storages all point at the
// configured collection and report themselves as Shared.
func NewFactory(cfg config.VectorStoreConfig) (Factory, error) {
	switch cfg.Type {
	case "memory", "":
		return func() Storage { return memory.NewStorage(cfg.Collection) }, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qcfg := qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}
		return func() Storage { return qdrant.NewStorage(qcfg) }, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// BuildOptions tunes index construction.
type BuildOptions struct {
	// EmbedTimeout bounds each embedding call; zero means no extra bound.
	EmbedTimeout time.Duration
	// MaxTopK caps the k accepted by Query; zero means DefaultMaxTopK.
	MaxTopK int
	Logger  logger.Logger
	// OnEmbedFailure is called once per skipped chunk.
	OnEmbedFailure func(chunk domain.Chunk, err error)
}

// Index is a fully built, read-only view over a Storage.
type Index struct {
	store     Storage
	size      int
	dimension int
	maxTopK   int
}

// Build embeds every chunk and loads the successes into store. Chunks whose
// embedding fails, is empty, or disagrees with the dimension of the first
// successful vector are skipped. The store is only initialised once all
// embeddings are known. A failure after that point wraps ErrStoreReset.
func Build(ctx context.Context, chunks []domain.Chunk, embedder domain.Embedder, store Storage, opts BuildOptions) (*Index, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	skip := func(c domain.Chunk, err error) {
		log.Warn("skipping chunk", "chunk", c.Index, "err", err)
		if opts.OnEmbedFailure != nil {
			opts.OnEmbedFailure(c, err)
		}
	}

	corpus := make([]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.Content
	}
	if err := embedder.Prepare(corpus); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}

	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))
	dimension := 0
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := embedWithTimeout(ctx, embedder, c.Content, opts.EmbedTimeout)
		switch {
		case err != nil:
			skip(c, err)
			continue
		case len(vec) == 0:
			skip(c, fmt.Errorf("%w: empty vector", domain.ErrEmbedding))
			continue
		case dimension != 0 && len(vec) != dimension:
			skip(c, fmt.Errorf("%w: got %d want %d", domain.ErrDimensionMismatch, len(vec), dimension))
			continue
		}
		dimension = len(vec)
		embedded = append(embedded, domain.EmbeddedChunk{Chunk: c, Vector: vec})
	}
	if len(embedded) == 0 {
		return nil, domain.ErrEmptyIndex
	}

	if err := store.Init(ctx, dimension); err != nil {
		return nil, fmt.Errorf("%w: init store %q: %w", ErrStoreReset, store.Name(), err)
	}
	if err := store.Upsert(ctx, embedded); err != nil {
		return nil, fmt.Errorf("%w: upsert into %q: %w", ErrStoreReset, store.Name(), err)
	}
	maxTopK := opts.MaxTopK
	if maxTopK <= 0 {
		maxTopK = DefaultMaxTopK
	}
	log.Info("index built", "collection", store.Name(), "chunks", len(embedded), "skipped", len(chunks)-len(embedded), "dims", dimension)
	return &Index{store: store, size: len(embedded), dimension: dimension, maxTopK: maxTopK}, nil
}

func embedWithTimeout(ctx context.Context, e domain.Embedder, text string, timeout time.Duration) ([]float64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.Embed(ctx, text)
}

// Query returns the min(k, MaxTopK, Size) nearest chunks to vector.
func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.Hit, error) {
	if ix == nil || ix.size == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", domain.ErrDimensionMismatch, len(vector), ix.dimension)
	}
	k = min(k, ix.maxTopK, ix.size)
	hits, err := ix.store.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Size is the number of chunks in the index.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Dimension is the vector length every entry shares.
func (ix *Index) Dimension() int { return ix.dimension }

// MaxTopK is the hard cap applied to k.
func (ix *Index) MaxTopK() int { return ix.maxTopK }

// Name is the logical collection name.
func (ix *Index) Name() string { return ix.store.Name() }

// Uses reports whether the index reads from s.
func (ix *Index) Uses(s Storage) bool {
	return ix != nil && ix.store == s
}
