package repository

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/zots0127/filedrop/internal/domain/entities"
	_ "modernc.org/sqlite"
)

// SQLiteTransferLog stores transfer records in a SQLite table. With the
// default ":memory:" DSN the log still lives only as long as the process.
type SQLiteTransferLog struct {
	db *sql.DB
	// serializes appends so seq order equals completion order
	mu sync.Mutex
}

// NewSQLiteTransferLog opens dsn and creates the records table
func NewSQLiteTransferLog(dsn string) (*SQLiteTransferLog, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// an in-memory database exists per connection, so keep exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := &SQLiteTransferLog{db: db}
	if err := l.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return l, nil
}

func (l *SQLiteTransferLog) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transfer_records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		action TEXT NOT NULL,
		filename TEXT NOT NULL,
		outcome TEXT NOT NULL,
		url TEXT,
		size INTEGER DEFAULT 0,
		error TEXT
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append inserts a record
func (l *SQLiteTransferLog) Append(record entities.TransferRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		`INSERT INTO transfer_records (id, timestamp, action, filename, outcome, url, size, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Timestamp.UnixNano(),
		string(record.Action),
		record.Filename,
		string(record.Outcome),
		record.URL,
		record.Size,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer record: %w", err)
	}
	return nil
}

// Records returns all records ordered by insertion
func (l *SQLiteTransferLog) Records() ([]entities.TransferRecord, error) {
	rows, err := l.db.Query(
		`SELECT id, timestamp, action, filename, outcome, url, size, error
		FROM transfer_records ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer records: %w", err)
	}
	defer rows.Close()

	var records []entities.TransferRecord
	for rows.Next() {
		var (
			record   entities.TransferRecord
			ts       int64
			action   string
			outcome  string
			url      sql.NullString
			errorMsg sql.NullString
		)
		if err := rows.Scan(&record.ID, &ts, &action, &record.Filename, &outcome, &url, &record.Size, &errorMsg); err != nil {
			return nil, fmt.Errorf("failed to scan transfer record: %w", err)
		}
		record.Timestamp = time.Unix(0, ts)
		record.Action = entities.Action(action)
		record.Outcome = entities.Outcome(outcome)
		record.URL = url.String
		record.Error = errorMsg.String
		records = append(records, record)
	}
	return records, rows.Err()
}

// Clear deletes every record
func (l *SQLiteTransferLog) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec("DELETE FROM transfer_records"); err != nil {
		return fmt.Errorf("failed to clear transfer records: %w", err)
	}
	return nil
}

// Close closes the database connection
func (l *SQLiteTransferLog) Close() error {
	return l.db.Close()
}
