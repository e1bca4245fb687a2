package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/vectorstore/memory"
)

// charEmbedder maps text to letter frequencies over a-z, a deterministic
// vector derived from its character codes.
type charEmbedder struct {
	fail map[string]bool
	dims map[string]int
}

func (charEmbedder) Name() string           { return "chars" }
func (charEmbedder) Prepare([]string) error { return nil }

func (e charEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.fail[text] {
		return nil, fmt.Errorf("%w: stub refused %q", domain.ErrEmbedding, text)
	}
	n := 26
	if d, ok := e.dims[text]; ok {
		n = d
	}
	vec := make([]float64, n)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' && int(r-'a') < n {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Content: t, Index: i}
	}
	return out
}

type failingUpsertStore struct{ *memory.Storage }

func (failingUpsertStore) Upsert(context.Context, []domain.EmbeddedChunk) error {
	return errors.New("disk full")
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldFindTheCatChunk", func(t *testing.T) {
		emb := charEmbedder{}
		ix, err := Build(ctx, chunksOf("the cat sat", "on the mat"), emb, memory.NewStorage("rag_documents"), BuildOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, ix.Size())
		assert.Equal(t, 26, ix.Dimension())

		q, err := emb.Embed(ctx, "cat")
		require.NoError(t, err)
		hits, err := ix.Query(ctx, q, 3)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "the cat sat", hits[0].Content)
		assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	})

	t.Run("ShouldSkipChunksThatFailToEmbed", func(t *testing.T) {
		var skipped []int
		emb := charEmbedder{
			fail: map[string]bool{"broken": true},
			dims: map[string]int{"short": 3},
		}
		ix, err := Build(ctx, chunksOf("alpha", "broken", "short", "omega"), emb, memory.NewStorage("c"), BuildOptions{
			OnEmbedFailure: func(c domain.Chunk, _ error) { skipped = append(skipped, c.Index) },
		})
		require.NoError(t, err)
		assert.Equal(t, 2, ix.Size())
		assert.Equal(t, []int{1, 2}, skipped)
	})

	t.Run("ShouldFailWhenNothingEmbeds", func(t *testing.T) {
		emb := charEmbedder{fail: map[string]bool{"a": true, "b": true}}
		store := memory.NewStorage("c")
		_, err := Build(ctx, chunksOf("a", "b"), emb, store, BuildOptions{})
		require.ErrorIs(t, err, domain.ErrEmptyIndex)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("ShouldMarkStoreResetWhenUpsertFails", func(t *testing.T) {
		store := &failingUpsertStore{Storage: memory.NewStorage("c")}
		_, err := Build(ctx, chunksOf("alpha", "omega"), charEmbedder{}, store, BuildOptions{})
		require.ErrorIs(t, err, ErrStoreReset)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("ShouldNotMarkStoreResetBeforeInit", func(t *testing.T) {
		emb := charEmbedder{fail: map[string]bool{"a": true}}
		_, err := Build(ctx, chunksOf("a"), emb, &failingUpsertStore{Storage: memory.NewStorage("c")}, BuildOptions{})
		require.ErrorIs(t, err, domain.ErrEmptyIndex)
		assert.NotErrorIs(t, err, ErrStoreReset)
	})

	t.Run("ShouldFailForNoChunks", func(t *testing.T) {
		_, err := Build(ctx, nil, charEmbedder{}, memory.NewStorage("c"), BuildOptions{})
		require.ErrorIs(t, err, domain.ErrEmptyIndex)
	})

	t.Run("ShouldTreatEmbedTimeoutAsSkip", func(t *testing.T) {
		slow := slowEmbedder{delay: time.Second, slowText: "slow"}
		ix, err := Build(ctx, chunksOf("fast", "slow"), slow, memory.NewStorage("c"), BuildOptions{EmbedTimeout: 20 * time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, 1, ix.Size())
	})
}

type slowEmbedder struct {
	delay    time.Duration
	slowText string
}

func (slowEmbedder) Name() string           { return "slow" }
func (slowEmbedder) Prepare([]string) error { return nil }

func (s slowEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == s.slowText {
		select {
		case <-ctx.Done():
			return nil, errors.Join(domain.ErrEmbedding, ctx.Err())
		case <-time.After(s.delay):
		}
	}
	return []float64{1, 0}, nil
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()
	texts := make([]string, 15)
	for i := range texts {
		texts[i] = strings.Repeat("ab", i+1) + strings.Repeat("z", 15-i)
	}
	ix, err := Build(ctx, chunksOf(texts...), charEmbedder{}, memory.NewStorage("c"), BuildOptions{})
	require.NoError(t, err)
	q, _ := charEmbedder{}.Embed(ctx, "ab")

	t.Run("ShouldClampToHardCap", func(t *testing.T) {
		hits, err := ix.Query(ctx, q, 50)
		require.NoError(t, err)
		assert.Len(t, hits, DefaultMaxTopK)
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	})

	t.Run("ShouldReturnExactlyK", func(t *testing.T) {
		hits, err := ix.Query(ctx, q, 3)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("ShouldReturnNothingForNonPositiveK", func(t *testing.T) {
		hits, err := ix.Query(ctx, q, 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("ShouldRejectWrongDimension", func(t *testing.T) {
		_, err := ix.Query(ctx, []float64{1, 2}, 3)
		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("ShouldHonourConfiguredCap", func(t *testing.T) {
		small, err := Build(ctx, chunksOf(texts...), charEmbedder{}, memory.NewStorage("c"), BuildOptions{MaxTopK: 4})
		require.NoError(t, err)
		hits, err := small.Query(ctx, q, 8)
		require.NoError(t, err)
		assert.Len(t, hits, 4)
	})

	t.Run("ShouldTreatNilIndexAsEmpty", func(t *testing.T) {
		var none *Index
		hits, err := none.Query(ctx, q, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
		assert.Equal(t, 0, none.Size())
	})
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(config.VectorStoreConfig{Type: "memory", Collection: "rag_documents"})
	require.NoError(t, err)
	a, b := f(), f()
	assert.Equal(t, "rag_documents", a.Name())
	assert.NotSame(t, a, b)

	assert.False(t, IsShared(a))

	q, err := NewFactory(config.VectorStoreConfig{
		Type:       "qdrant",
		Collection: "rag_documents",
		Qdrant:     &config.QdrantConfig{URL: "http://localhost:6333"},
	})
	require.NoError(t, err)
	assert.True(t, IsShared(q()))

	_, err = NewFactory(config.VectorStoreConfig{Type: "qdrant"})
	require.Error(t, err)
	_, err = NewFactory(config.VectorStoreConfig{Type: "chroma"})
	require.Error(t, err)
}

func TestIndexUses(t *testing.T) {
	store := memory.NewStorage("c")
	ix, err := Build(context.Background(), chunksOf("alpha"), charEmbedder{}, store, BuildOptions{})
	require.NoError(t, err)
	assert.True(t, ix.Uses(store))
	assert.False(t, ix.Uses(memory.NewStorage("c")))

	var none *Index
	assert.False(t, none.Uses(store))
}
