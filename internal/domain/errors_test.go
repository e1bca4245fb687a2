package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	t.Run("ShouldCollapseWrappedRequestErrors", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", ErrIndexBuild, ErrEmptyIndex)
		assert.Equal(t, "failed to build vector index", UserMessage(err))
	})

	t.Run("ShouldKeepUnknownErrorText", func(t *testing.T) {
		assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	})

	t.Run("ShouldReportDocumentMissing", func(t *testing.T) {
		err := fmt.Errorf("load handbook.txt: %w", ErrDocumentNotFound)
		assert.Equal(t, "document file not found", UserMessage(err))
		assert.False(t, IsRequestError(err))
		assert.True(t, IsRequestError(ErrEmptyQuery))
	})
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc_0", Chunk{Index: 0}.ID())
	assert.Equal(t, "doc_12", Chunk{Index: 12}.ID())
}
