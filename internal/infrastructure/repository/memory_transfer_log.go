package repository

import (
	"sync"

	"github.com/zots0127/filedrop/internal/domain/entities"
)

// MemoryTransferLog keeps transfer records in process memory
type MemoryTransferLog struct {
	mu      sync.RWMutex
	records []entities.TransferRecord
}

// NewMemoryTransferLog creates an empty in-memory transfer log
func NewMemoryTransferLog() *MemoryTransferLog {
	return &MemoryTransferLog{}
}

// Append adds a record to the end of the log
func (l *MemoryTransferLog) Append(record entities.TransferRecord) error {
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
	return nil
}

// Records returns a copy of the log
func (l *MemoryTransferLog) Records() ([]entities.TransferRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]entities.TransferRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// Clear drops every record
func (l *MemoryTransferLog) Clear() error {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()
	return nil
}

// Close is a no-op
func (l *MemoryTransferLog) Close() error {
	return nil
}
