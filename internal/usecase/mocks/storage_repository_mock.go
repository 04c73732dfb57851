package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/zots0127/filedrop/internal/domain/entities"
)

// MockFileStore is a mock implementation of FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Put(ctx context.Context, reader io.Reader) (*entities.StoredFile, error) {
	args := m.Called(ctx, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoredFile), args.Error(1)
}

func (m *MockFileStore) Open(ctx context.Context, name string) (io.ReadCloser, *entities.StoredFile, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*entities.StoredFile), args.Error(2)
}

func (m *MockFileStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockFileStore) List(ctx context.Context) ([]entities.StoredFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.StoredFile), args.Error(1)
}

func (m *MockFileStore) Path(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

// MockReplicator is a mock implementation of Replicator
type MockReplicator struct {
	mock.Mock
}

func (m *MockReplicator) Replicate(ctx context.Context, file entities.StoredFile, path string) error {
	args := m.Called(ctx, file, path)
	return args.Error(0)
}
