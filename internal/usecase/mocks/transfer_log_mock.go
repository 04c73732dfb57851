package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/zots0127/filedrop/internal/domain/entities"
)

// MockTransferLog is a mock implementation of TransferLog
type MockTransferLog struct {
	mock.Mock
}

func (m *MockTransferLog) Append(record entities.TransferRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockTransferLog) Records() ([]entities.TransferRecord, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TransferRecord), args.Error(1)
}

func (m *MockTransferLog) Clear() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTransferLog) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSender is a mock implementation of Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, targetURL, filename string, body io.Reader) (int64, error) {
	args := m.Called(ctx, targetURL, filename, body)
	return args.Get(0).(int64), args.Error(1)
}
