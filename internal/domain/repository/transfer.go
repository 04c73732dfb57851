package repository

import (
	"github.com/zots0127/filedrop/internal/domain/entities"
)

// TransferLog defines the append-only record of send/receive/delete outcomes.
// Implementations must be safe for concurrent use and keep records in the
// order Append was called.
type TransferLog interface {
	// Append adds a record to the end of the log
	Append(record entities.TransferRecord) error

	// Records returns a copy of all records in append order
	Records() ([]entities.TransferRecord, error)

	// Clear removes every record
	Clear() error

	// Close releases resources held by the log
	Close() error
}
