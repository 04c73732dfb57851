package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
)

const (
	uploadNamePrefix = "uploaded_file_"
	partialPrefix    = ".partial-"
	maxNameAttempts  = 10000
)

// LocalFileStore implements FileStore on top of a single local directory
type LocalFileStore struct {
	basePath string
	logger   *zap.Logger
	now      func() time.Time
}

// NewLocalFileStore creates the store directory if needed and returns a store rooted at it
func NewLocalFileStore(basePath string, logger *zap.Logger) (*LocalFileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", repository.ErrIO, err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve store directory: %w", repository.ErrIO, err)
	}
	return &LocalFileStore{
		basePath: abs,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// BasePath returns the absolute store directory
func (s *LocalFileStore) BasePath() string {
	return s.basePath
}

// Put streams reader into a partial file, then links it under the first free
// uploaded_file_<unix seconds>[_N] name. Linking fails when the name exists, so
// concurrent uploads never resolve to the same name and nothing is overwritten.
func (s *LocalFileStore) Put(ctx context.Context, reader io.Reader) (*entities.StoredFile, error) {
	tempFile, err := os.CreateTemp(s.basePath, partialPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", repository.ErrIO, err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := io.Copy(tempFile, reader); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("%w: write upload: %w", repository.ErrIO, err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("%w: close upload: %w", repository.ErrIO, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := s.claimName(tempPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filepath.Join(s.basePath, name))
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", repository.ErrIO, name, err)
	}

	s.logger.Debug("stored upload", zap.String("name", name), zap.Int64("size", info.Size()))
	return &entities.StoredFile{
		Name:       name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

func (s *LocalFileStore) claimName(tempPath string) (string, error) {
	base := fmt.Sprintf("%s%d", uploadNamePrefix, s.now().Unix())
	for i := 0; i < maxNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		err := os.Link(tempPath, filepath.Join(s.basePath, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: link %s: %w", repository.ErrIO, name, err)
		}
	}
	return "", fmt.Errorf("%w: no free name for %s", repository.ErrIO, base)
}

// Open opens a stored file for reading
func (s *LocalFileStore) Open(ctx context.Context, name string) (io.ReadCloser, *entities.StoredFile, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", repository.ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("%w: open %s: %w", repository.ErrIO, name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%w: stat %s: %w", repository.ErrIO, name, err)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	}

	return file, &entities.StoredFile{
		Name:       name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// Delete removes a stored file
func (s *LocalFileStore) Delete(ctx context.Context, name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", repository.ErrNotFound, name)
		}
		return fmt.Errorf("%w: stat %s: %w", repository.ErrIO, name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", repository.ErrNotFound, name)
		}
		return fmt.Errorf("%w: remove %s: %w", repository.ErrIO, name, err)
	}
	return nil
}

// List reads the directory on every call; nothing is cached
func (s *LocalFileStore) List(ctx context.Context) ([]entities.StoredFile, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read store directory: %w", repository.ErrIO, err)
	}

	files := make([]entities.StoredFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), partialPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		files = append(files, entities.StoredFile{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].ModifiedAt.After(files[j].ModifiedAt)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Path resolves name to a location directly inside the store directory.
// Anything that could escape the directory is reported as not found.
func (s *LocalFileStore) Path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", repository.ErrNotFound, name)
	}
	path := filepath.Join(s.basePath, name)
	if filepath.Dir(path) != s.basePath {
		return "", fmt.Errorf("%w: %q", repository.ErrNotFound, name)
	}
	return path, nil
}

func validName(name string) bool {
	switch {
	case name == "", name == ".", name == "..":
		return false
	case strings.ContainsAny(name, "/\\\x00"):
		return false
	case filepath.IsAbs(name), filepath.VolumeName(name) != "":
		return false
	case strings.HasPrefix(name, partialPrefix):
		return false
	}
	return filepath.Base(name) == name
}
