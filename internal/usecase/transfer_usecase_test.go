package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
	infra "github.com/zots0127/filedrop/internal/infrastructure/repository"
	"github.com/zots0127/filedrop/internal/usecase"
	"github.com/zots0127/filedrop/internal/usecase/mocks"
)

type fakeMetrics struct {
	transfers []string
	stored    int
}

func (f *fakeMetrics) RecordTransfer(action, outcome string, size int64) {
	f.transfers = append(f.transfers, action+":"+outcome)
}

func (f *fakeMetrics) SetStoredFiles(count int) {
	f.stored = count
}

func TestTransferUseCase_Receive(t *testing.T) {
	tests := []struct {
		name            string
		setupMock       func(*mocks.MockFileStore)
		expectError     bool
		expectedOutcome entities.Outcome
		expectedName    string
	}{
		{
			name: "successful receive",
			setupMock: func(s *mocks.MockFileStore) {
				s.On("Put", mock.Anything, mock.Anything).
					Return(&entities.StoredFile{Name: "uploaded_file_1700000000", Size: 10}, nil)
			},
			expectedOutcome: entities.OutcomeSuccess,
			expectedName:    "uploaded_file_1700000000",
		},
		{
			name: "disk failure",
			setupMock: func(s *mocks.MockFileStore) {
				s.On("Put", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: disk full", repository.ErrIO))
			},
			expectError:     true,
			expectedOutcome: entities.OutcomeFailed,
			expectedName:    "report.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockFileStore)
			tt.setupMock(store)
			history := infra.NewMemoryTransferLog()
			metrics := &fakeMetrics{}

			uc := usecase.NewTransferUseCase(store, history, new(mocks.MockSender), nil, usecase.WithMetrics(metrics))
			file, err := uc.Receive(context.Background(), "report.pdf", bytes.NewReader([]byte("hello test")))

			if tt.expectError {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, repository.ErrIO))
				assert.Nil(t, file)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedName, file.Name)
			}

			records, err := history.Records()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, entities.ActionReceive, records[0].Action)
			assert.Equal(t, tt.expectedOutcome, records[0].Outcome)
			assert.Equal(t, tt.expectedName, records[0].Filename)
			assert.NotEmpty(t, records[0].ID)
			assert.Equal(t, []string{"receive:" + string(tt.expectedOutcome)}, metrics.transfers)

			store.AssertExpectations(t)
		})
	}
}

func TestTransferUseCase_ReceiveReplicates(t *testing.T) {
	stored := &entities.StoredFile{Name: "uploaded_file_1", Size: 3}

	store := new(mocks.MockFileStore)
	store.On("Put", mock.Anything, mock.Anything).Return(stored, nil)
	store.On("Path", "uploaded_file_1").Return("/data/uploaded_file_1", nil)

	replicator := new(mocks.MockReplicator)
	replicator.On("Replicate", mock.Anything, *stored, "/data/uploaded_file_1").
		Return(errors.New("bucket unreachable"))

	history := infra.NewMemoryTransferLog()
	uc := usecase.NewTransferUseCase(store, history, new(mocks.MockSender), nil, usecase.WithReplicator(replicator))

	file, err := uc.Receive(context.Background(), "a.txt", bytes.NewReader([]byte("abc")))
	require.NoError(t, err, "mirror failures must not fail the receive")
	assert.Equal(t, "uploaded_file_1", file.Name)

	records, _ := history.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Succeeded())

	replicator.AssertExpectations(t)
}

func TestTransferUseCase_Send(t *testing.T) {
	tests := []struct {
		name            string
		sendResult      int64
		sendErr         error
		expectedOutcome entities.Outcome
	}{
		{"success", 10, nil, entities.OutcomeSuccess},
		{"network error", 0, fmt.Errorf("%w: connection refused", repository.ErrNetwork), entities.OutcomeFailed},
		{"non-200 status", 0, fmt.Errorf("%w: receiver responded 500", repository.ErrNetwork), entities.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(mocks.MockSender)
			sender.On("Send", mock.Anything, "http://127.0.0.1:9000", "report.pdf", mock.Anything).
				Return(tt.sendResult, tt.sendErr)
			history := infra.NewMemoryTransferLog()

			uc := usecase.NewTransferUseCase(new(mocks.MockFileStore), history, sender, nil)
			record := uc.Send(context.Background(), "http://127.0.0.1:9000", "report.pdf", bytes.NewReader([]byte("hello test")))

			assert.Equal(t, entities.ActionSend, record.Action)
			assert.Equal(t, "report.pdf", record.Filename)
			assert.Equal(t, "http://127.0.0.1:9000", record.URL)
			assert.Equal(t, tt.expectedOutcome, record.Outcome)
			if tt.sendErr != nil {
				assert.Contains(t, record.Error, tt.sendErr.Error())
			} else {
				assert.Empty(t, record.Error)
				assert.Equal(t, int64(10), record.Size)
			}

			records, _ := history.Records()
			require.Len(t, records, 1, "exactly one record per send")
			assert.Equal(t, record, records[0])
		})
	}
}

func TestTransferUseCase_Delete(t *testing.T) {
	tests := []struct {
		name          string
		deleteErr     error
		expected      bool
		expectRecords int
	}{
		{"removed", nil, true, 1},
		{"already gone", fmt.Errorf("%w: x", repository.ErrNotFound), false, 0},
		{"permission denied", fmt.Errorf("%w: permission denied", repository.ErrIO), false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockFileStore)
			store.On("Delete", mock.Anything, "uploaded_file_1").Return(tt.deleteErr)
			history := infra.NewMemoryTransferLog()

			uc := usecase.NewTransferUseCase(store, history, new(mocks.MockSender), nil)
			assert.Equal(t, tt.expected, uc.Delete(context.Background(), "uploaded_file_1"))

			records, _ := history.Records()
			require.Len(t, records, tt.expectRecords)
			if tt.expectRecords == 1 {
				assert.Equal(t, entities.ActionDelete, records[0].Action)
				assert.Equal(t, tt.expected, records[0].Succeeded())
			}
		})
	}
}

func TestTransferUseCase_HistoryOrder(t *testing.T) {
	store := new(mocks.MockFileStore)
	store.On("Put", mock.Anything, mock.Anything).Return(&entities.StoredFile{Name: "uploaded_file_2", Size: 1}, nil)
	store.On("Delete", mock.Anything, "uploaded_file_2").Return(nil)
	sender := new(mocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	uc := usecase.NewTransferUseCase(store, infra.NewMemoryTransferLog(), sender, nil, usecase.WithClock(clock))
	ctx := context.Background()

	uc.Send(ctx, "http://peer:8000", "a.txt", bytes.NewReader([]byte("a")))
	_, err := uc.Receive(ctx, "b.txt", bytes.NewReader([]byte("b")))
	require.NoError(t, err)
	require.True(t, uc.Delete(ctx, "uploaded_file_2"))

	records, err := uc.History()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, entities.ActionSend, records[0].Action)
	assert.Equal(t, entities.ActionReceive, records[1].Action)
	assert.Equal(t, entities.ActionDelete, records[2].Action)
	assert.True(t, records[0].Timestamp.Before(records[1].Timestamp))
	assert.True(t, records[1].Timestamp.Before(records[2].Timestamp))

	require.NoError(t, uc.ClearHistory())
	records, err = uc.History()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTransferUseCase_AppendFailureDoesNotPanic(t *testing.T) {
	history := new(mocks.MockTransferLog)
	history.On("Append", mock.Anything).Return(errors.New("database is locked"))
	sender := new(mocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(4), nil)

	uc := usecase.NewTransferUseCase(new(mocks.MockFileStore), history, sender, nil)
	record := uc.Send(context.Background(), "http://peer:8000", "a.txt", bytes.NewReader([]byte("data")))

	assert.True(t, record.Succeeded())
	history.AssertNumberOfCalls(t, "Append", 1)
}

func TestTransferUseCase_List(t *testing.T) {
	files := []entities.StoredFile{{Name: "b"}, {Name: "a"}}
	store := new(mocks.MockFileStore)
	store.On("List", mock.Anything).Return(files, nil)
	metrics := &fakeMetrics{}

	uc := usecase.NewTransferUseCase(store, infra.NewMemoryTransferLog(), new(mocks.MockSender), nil, usecase.WithMetrics(metrics))
	listed, err := uc.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, files, listed)
	assert.Equal(t, 2, metrics.stored)
}

func TestTransferUseCase_RecordSendFailure(t *testing.T) {
	sender := new(mocks.MockSender)
	history := infra.NewMemoryTransferLog()
	metrics := &fakeMetrics{}
	uc := usecase.NewTransferUseCase(new(mocks.MockFileStore), history, sender, nil, usecase.WithMetrics(metrics))

	cause := fmt.Errorf("%w: %w", repository.ErrIO, &os.PathError{Op: "open", Path: "missing.txt", Err: os.ErrNotExist})
	record := uc.RecordSendFailure("http://peer:8000", "missing.txt", cause)

	assert.Equal(t, entities.ActionSend, record.Action)
	assert.Equal(t, entities.OutcomeFailed, record.Outcome)
	assert.Equal(t, "http://peer:8000", record.URL)
	assert.Contains(t, record.Error, "missing.txt")
	assert.Contains(t, record.Error, repository.ErrIO.Error())
	assert.NotContains(t, record.Error, repository.ErrNetwork.Error())
	assert.Equal(t, []string{"send:failed"}, metrics.transfers)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	records, err := history.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
}

func TestTransferUseCase_TimestampsFollowLogOrder(t *testing.T) {
	var ticks atomic.Int64
	base := time.Unix(1700000000, 0)
	clock := func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	}
	sender := new(mocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	history := infra.NewMemoryTransferLog()
	uc := usecase.NewTransferUseCase(new(mocks.MockFileStore), history, sender, nil, usecase.WithClock(clock))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uc.Send(context.Background(), "http://peer:8000", fmt.Sprintf("f%d", i), bytes.NewReader([]byte("x")))
		}(i)
	}
	wg.Wait()

	records, err := history.Records()
	require.NoError(t, err)
	require.Len(t, records, n)
	for i := 1; i < n; i++ {
		assert.True(t, records[i].Timestamp.After(records[i-1].Timestamp),
			"record %d is older than the one appended before it", i)
	}
}
