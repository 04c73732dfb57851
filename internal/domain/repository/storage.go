package repository

import (
	"context"
	"io"

	"github.com/zots0127/filedrop/internal/domain/entities"
)

// FileStore defines the interface for the directory of received files
type FileStore interface {
	// Put writes the content of reader under a newly generated unique name
	Put(ctx context.Context, reader io.Reader) (*entities.StoredFile, error)

	// Open returns a reader for a stored file. Names that do not resolve to a
	// regular file inside the store yield ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, *entities.StoredFile, error)

	// Delete removes a stored file
	Delete(ctx context.Context, name string) error

	// List returns all stored files, most recently modified first
	List(ctx context.Context) ([]entities.StoredFile, error)

	// Path returns the on-disk location of a stored file
	Path(name string) (string, error)
}

// Replicator copies received files to a secondary location
type Replicator interface {
	Replicate(ctx context.Context, file entities.StoredFile, path string) error
}
