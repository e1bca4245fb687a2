// Package chunker splits the reference document into retrieval units.
package chunker

import (
	"fmt"

	"ragqa/internal/config"
	"ragqa/internal/domain"
)

// New builds the chunker described by cfg.
func New(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "window", "":
		return NewWindowChunker(cfg.Size, cfg.Overlap)
	case "sentence":
		return NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}
