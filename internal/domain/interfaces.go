package domain

import (
	"context"
	"fmt"
	"time"
)

// Document is the single reference text the pipeline answers questions from.
type Document struct {
	Name    string
	Content string
}

// Chunk is a trimmed, non-empty slice of the document used as the retrieval unit.
// Index values within one document are 0..n-1 with no gaps.
type Chunk struct {
	Content string
	Index   int
}

// ID returns the identifier the chunk is stored under in a vector index.
func (c Chunk) ID() string { return fmt.Sprintf("doc_%d", c.Index) }

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float64
}

// Hit is one nearest-neighbour result of an index query.
type Hit struct {
	Content    string
	ChunkIndex int
	Distance   float64
}

// RetrievedPassage is a hit scored for presentation to the caller.
type RetrievedPassage struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// Result is what a successful query returns.
type Result struct {
	Answer        string             `json:"answer"`
	RetrievedDocs []RetrievedPassage `json:"retrieved_docs"`
}

// Status describes the pipeline's index state.
type Status struct {
	Ready      bool      `json:"ready"`
	Document   string    `json:"document"`
	Chunks     int       `json:"chunks"`
	Dimension  int       `json:"dimension"`
	Collection string    `json:"collection"`
	Overview   string    `json:"overview,omitempty"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
}

// Chat roles used when talking to the generative model.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CorpusBound is implemented by embedders whose vector space is refitted by
// Prepare. Vectors from before and after a Prepare are not comparable.
type CorpusBound interface {
	CorpusBound() bool
}

// IsCorpusBound reports whether e refits its vector space on Prepare.
func IsCorpusBound(e Embedder) bool {
	cb, ok := e.(CorpusBound)
	return ok && cb.CorpusBound()
}

// ChatModel produces a reply to an ordered conversation.
type ChatModel interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Chunker splits a document into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// DocumentSource loads the reference document.
type DocumentSource interface {
	Load(ctx context.Context) (Document, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
