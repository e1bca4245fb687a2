package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragqa/internal/domain"
)

// Storage is an in-memory vector store using brute-force cosine distance.
type Storage struct {
	mu        sync.RWMutex
	name      string
	dimension int
	ids       map[string]int
	entries   []entry
}

type entry struct {
	chunk domain.Chunk
	norm  float64
	vec   []float64
}

func NewStorage(name string) *Storage { return &Storage{name: name} }

func (s *Storage) Name() string { return s.name }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.ids = make(map[string]int)
	s.entries = nil
	return nil
}

// Upsert validates the whole batch before inserting any of it.
func (s *Storage) Upsert(_ context.Context, chunks []domain.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("memory store %q not initialised", s.name)
	}
	for _, c := range chunks {
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dims, want %d", domain.ErrDimensionMismatch, c.Index, len(c.Vector), s.dimension)
		}
	}
	for _, c := range chunks {
		e := entry{chunk: c.Chunk, vec: append([]float64(nil), c.Vector...), norm: norm(c.Vector)}
		if i, ok := s.ids[c.ID()]; ok {
			s.entries[i] = e
			continue
		}
		s.ids[c.ID()] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dims, want %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	qnorm := norm(vector)
	hits := make([]domain.Hit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = domain.Hit{
			Content:    e.chunk.Content,
			ChunkIndex: e.chunk.Index,
			Distance:   cosineDistance(e.vec, e.norm, vector, qnorm),
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ChunkIndex < hits[j].ChunkIndex
		}
		return hits[i].Distance < hits[j].Distance
	})
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]int)
	s.entries = nil
	return nil
}

// Len reports how many chunks are stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineDistance is 1 - cos(a, b). A zero vector is orthogonal to everything.
// Rounding can push identical vectors slightly below zero, so the result is clamped.
func cosineDistance(a []float64, na float64, b []float64, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return math.Max(0, 1-dot/(na*nb))
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
