package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
)

// Sender pushes a payload to a remote receiver and returns the bytes sent
type Sender interface {
	Send(ctx context.Context, targetURL, filename string, body io.Reader) (int64, error)
}

// MetricsRecorder receives transfer outcomes
type MetricsRecorder interface {
	RecordTransfer(action, outcome string, size int64)
	SetStoredFiles(count int)
}

// TransferUseCase performs store operations and appends one transfer record
// per send, receive and delete once the operation has completed
type TransferUseCase struct {
	store      repository.FileStore
	history    repository.TransferLog
	sender     Sender
	replicator repository.Replicator
	metrics    MetricsRecorder
	logger     *zap.Logger
	now        func() time.Time
	// held while stamping and appending so timestamps follow log order
	mu sync.Mutex
}

// Option configures a TransferUseCase
type Option func(*TransferUseCase)

// WithReplicator mirrors every received file
func WithReplicator(r repository.Replicator) Option {
	return func(u *TransferUseCase) { u.replicator = r }
}

// WithMetrics reports outcomes to m
func WithMetrics(m MetricsRecorder) Option {
	return func(u *TransferUseCase) { u.metrics = m }
}

// WithClock overrides the record timestamp source
func WithClock(now func() time.Time) Option {
	return func(u *TransferUseCase) { u.now = now }
}

// NewTransferUseCase creates a new transfer use case
func NewTransferUseCase(store repository.FileStore, history repository.TransferLog, sender Sender, logger *zap.Logger, opts ...Option) *TransferUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &TransferUseCase{
		store:   store,
		history: history,
		sender:  sender,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Receive stores an uploaded payload. filename is the name the sender
// supplied; it only appears in the record when storing fails.
func (u *TransferUseCase) Receive(ctx context.Context, filename string, body io.Reader) (*entities.StoredFile, error) {
	file, err := u.store.Put(ctx, body)
	if err != nil {
		u.logger.Error("failed to store upload", zap.String("filename", filename), zap.Error(err))
		u.record(entities.ActionReceive, filename, "", 0, err)
		return nil, err
	}

	u.record(entities.ActionReceive, file.Name, "", file.Size, nil)
	u.logger.Info("file received", zap.String("name", file.Name), zap.Int64("size", file.Size))

	if u.replicator != nil {
		u.replicate(ctx, *file)
	}
	return file, nil
}

func (u *TransferUseCase) replicate(ctx context.Context, file entities.StoredFile) {
	path, err := u.store.Path(file.Name)
	if err == nil {
		err = u.replicator.Replicate(ctx, file, path)
	}
	if err != nil {
		u.logger.Warn("failed to mirror received file", zap.String("name", file.Name), zap.Error(err))
	}
}

// Send uploads body to targetURL. It never returns an error: the outcome,
// including any failure message, is in the returned record.
func (u *TransferUseCase) Send(ctx context.Context, targetURL, filename string, body io.Reader) entities.TransferRecord {
	sent, err := u.sender.Send(ctx, targetURL, filename, body)
	if err != nil {
		u.logger.Warn("send failed",
			zap.String("filename", filename),
			zap.String("url", targetURL),
			zap.Error(err))
	} else {
		u.logger.Info("file sent",
			zap.String("filename", filename),
			zap.String("url", targetURL),
			zap.Int64("size", sent))
	}
	return u.record(entities.ActionSend, filename, targetURL, sent, err)
}

// RecordSendFailure records a send that failed before anything reached the
// network, such as an unreadable local file
func (u *TransferUseCase) RecordSendFailure(targetURL, filename string, err error) entities.TransferRecord {
	u.logger.Warn("send failed",
		zap.String("filename", filename),
		zap.String("url", targetURL),
		zap.Error(err))
	return u.record(entities.ActionSend, filename, targetURL, 0, err)
}

// Delete removes a stored file and reports whether it was removed. A file
// that is already gone is a benign no-op and is not recorded.
func (u *TransferUseCase) Delete(ctx context.Context, name string) bool {
	err := u.store.Delete(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		u.logger.Debug("delete of missing file", zap.String("name", name))
		return false
	}
	if err != nil {
		u.logger.Error("failed to delete file", zap.String("name", name), zap.Error(err))
	} else {
		u.logger.Info("file deleted", zap.String("name", name))
	}
	u.record(entities.ActionDelete, name, "", 0, err)
	return err == nil
}

// Open returns a reader for a stored file
func (u *TransferUseCase) Open(ctx context.Context, name string) (io.ReadCloser, *entities.StoredFile, error) {
	return u.store.Open(ctx, name)
}

// List returns the stored files, most recent first
func (u *TransferUseCase) List(ctx context.Context) ([]entities.StoredFile, error) {
	files, err := u.store.List(ctx)
	if err != nil {
		u.logger.Error("failed to list files", zap.Error(err))
		return nil, err
	}
	if u.metrics != nil {
		u.metrics.SetStoredFiles(len(files))
	}
	return files, nil
}

// History returns the transfer log in completion order
func (u *TransferUseCase) History() ([]entities.TransferRecord, error) {
	return u.history.Records()
}

// ClearHistory empties the transfer log
func (u *TransferUseCase) ClearHistory() error {
	return u.history.Clear()
}

func (u *TransferUseCase) record(action entities.Action, filename, url string, size int64, opErr error) entities.TransferRecord {
	record := entities.TransferRecord{
		ID:       uuid.NewString(),
		Action:   action,
		Filename: filename,
		Outcome:  entities.OutcomeSuccess,
		URL:      url,
		Size:     size,
	}
	if opErr != nil {
		record.Outcome = entities.OutcomeFailed
		record.Error = opErr.Error()
	}

	u.mu.Lock()
	record.Timestamp = u.now()
	err := u.history.Append(record)
	u.mu.Unlock()
	if err != nil {
		u.logger.Error("failed to append transfer record",
			zap.String("action", string(action)),
			zap.String("filename", filename),
			zap.Error(err))
	}
	if u.metrics != nil {
		u.metrics.RecordTransfer(string(record.Action), string(record.Outcome), record.Size)
	}
	return record
}
