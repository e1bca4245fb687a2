package source

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestFile(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldLoadDocument", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/docs/company_handbook.txt", []byte("Staff get 20 days of leave."), 0o644))

		doc, err := NewFile(fs, "/docs/company_handbook.txt").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "company_handbook.txt", doc.Name)
		assert.Equal(t, "Staff get 20 days of leave.", doc.Content)
	})

	t.Run("ShouldReportMissingDocument", func(t *testing.T) {
		_, err := NewFile(afero.NewMemMapFs(), "company_handbook.txt").Load(ctx)
		require.ErrorIs(t, err, domain.ErrDocumentNotFound)
		assert.Equal(t, "document file not found", domain.UserMessage(err))
	})

	t.Run("ShouldSeeFileCreatedAfterFailure", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		src := NewFile(fs, "handbook.txt")
		_, err := src.Load(ctx)
		require.ErrorIs(t, err, domain.ErrDocumentNotFound)

		require.NoError(t, afero.WriteFile(fs, "handbook.txt", []byte("now here"), 0o644))
		doc, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "now here", doc.Content)
	})
}
