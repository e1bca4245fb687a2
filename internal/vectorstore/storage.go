package vectorstore

import (
	"context"
	"errors"

	"ragqa/internal/domain"
)

// Storage holds embedded chunks and answers nearest-neighbour queries by cosine
// distance. The metric is fixed when the collection is created.
type Storage interface {
	// Init drops any existing collection with the store's name and creates an
	// empty one for vectors of the given dimension.
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error
	// Search returns up to topK hits by ascending distance, ties broken by
	// ascending chunk index.
	Search(ctx context.Context, vector []float64, topK int) ([]domain.Hit, error)
	Clear(ctx context.Context) error
	Name() string
}

// ErrStoreReset marks a build that failed after Init dropped the collection.
// An index still reading that collection no longer sees its chunks.
var ErrStoreReset = errors.New("vector store reset by failed build")

// Shared is implemented by backends whose collection outlives the Storage
// value, so two Storage values with the same name read and write the same data.
type Shared interface {
	SharedCollection() bool
}

// IsShared reports whether building into s overwrites what other Storage
// values with the same name serve.
func IsShared(s Storage) bool {
	sh, ok := s.(Shared)
	return ok && sh.SharedCollection()
}
