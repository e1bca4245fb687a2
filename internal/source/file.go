// Package source loads the reference document from a filesystem.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"ragqa/internal/domain"
)

// File reads one document from an afero filesystem on every Load, so a
// document restored after a failed build is picked up by the next attempt.
type File struct {
	fs   afero.Fs
	path string
}

// NewFile returns a source for path on fs; a nil fs means the OS filesystem.
func NewFile(fs afero.Fs, path string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{fs: fs, path: path}
}

func (f *File) Path() string { return f.path }

func (f *File) Load(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, f.path)
		}
		return domain.Document{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	return domain.Document{Name: filepath.Base(f.path), Content: string(data)}, nil
}
