package chunker

import (
	"fmt"
	"strings"

	"ragqa/internal/domain"
)

// Defaults for the sliding window, in characters.
const (
	DefaultWindowSize    = 250
	DefaultWindowOverlap = 30
)

// Split scans text with a window of size characters advancing by size-overlap,
// trimming each window and keeping the non-empty ones. Characters are Unicode
// code points, so multi-byte text is never cut mid-rune.
func Split(text string, size, overlap int) ([]domain.Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d overlap=%d)", domain.ErrInvalidWindow, size, overlap)
	}
	runes := []rune(text)
	step := size - overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		content := strings.TrimSpace(string(runes[start:end]))
		if content == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{Content: content, Index: len(chunks)})
	}
	return chunks, nil
}

// WindowChunker adapts Split to the domain.Chunker interface.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker validates the window up front so Chunk never fails on it.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d overlap=%d)", domain.ErrInvalidWindow, size, overlap)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	return Split(document.Content, c.size, c.overlap)
}
