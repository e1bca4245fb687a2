package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func embedded(idx int, content string, vec ...float64) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{Chunk: domain.Chunk{Content: content, Index: idx}, Vector: vec}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldOrderByAscendingDistance", func(t *testing.T) {
		s := NewStorage("rag_documents")
		require.NoError(t, s.Init(ctx, 2))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{
			embedded(0, "east", 1, 0),
			embedded(1, "north", 0, 1),
			embedded(2, "north-east", 1, 1),
		}))
		hits, err := s.Search(ctx, []float64{0.9, 0.1}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "east", hits[0].Content)
		assert.Equal(t, "north-east", hits[1].Content)
		assert.Equal(t, "north", hits[2].Content)
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	})

	t.Run("ShouldReturnZeroDistanceForIdenticalDirection", func(t *testing.T) {
		s := NewStorage("c")
		require.NoError(t, s.Init(ctx, 3))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "a", 0.3, 0.3, 0.3)}))
		hits, err := s.Search(ctx, []float64{2, 2, 2}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 0, hits[0].Distance, 1e-12)
		assert.GreaterOrEqual(t, hits[0].Distance, 0.0)
	})

	t.Run("ShouldBreakTiesByChunkIndex", func(t *testing.T) {
		s := NewStorage("c")
		require.NoError(t, s.Init(ctx, 2))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{
			embedded(2, "third", 1, 0),
			embedded(0, "first", 1, 0),
			embedded(1, "second", 2, 0),
		}))
		hits, err := s.Search(ctx, []float64{1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, []int{hits[0].ChunkIndex, hits[1].ChunkIndex, hits[2].ChunkIndex})
	})

	t.Run("ShouldRespectTopKWhenExceedingAvailableRecords", func(t *testing.T) {
		s := NewStorage("c")
		require.NoError(t, s.Init(ctx, 2))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "a", 1, 0), embedded(1, "b", 0, 1)}))
		hits, err := s.Search(ctx, []float64{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
		hits, err = s.Search(ctx, []float64{1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("ShouldRejectMismatchedDimensions", func(t *testing.T) {
		s := NewStorage("c")
		require.NoError(t, s.Init(ctx, 2))
		err := s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "ok", 1, 0), embedded(1, "bad", 1, 0, 0)})
		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.Equal(t, 0, s.Len())
		_, err = s.Search(ctx, []float64{1}, 1)
		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("ShouldReplaceOnReinit", func(t *testing.T) {
		s := NewStorage("c")
		require.NoError(t, s.Init(ctx, 2))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "old", 1, 0)}))
		require.NoError(t, s.Init(ctx, 2))
		assert.Equal(t, 0, s.Len())
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "new", 1, 0)}))
		require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{embedded(0, "newer", 1, 0)}))
		assert.Equal(t, 1, s.Len())
	})
}
