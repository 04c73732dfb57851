package repository

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
)

func transferLogs(t *testing.T) map[string]func() repository.TransferLog {
	return map[string]func() repository.TransferLog{
		"memory": func() repository.TransferLog {
			return NewMemoryTransferLog()
		},
		"sqlite": func() repository.TransferLog {
			l, err := NewSQLiteTransferLog(":memory:")
			require.NoError(t, err)
			return l
		},
	}
}

func record(i int, action entities.Action, outcome entities.Outcome) entities.TransferRecord {
	return entities.TransferRecord{
		ID:        fmt.Sprintf("id-%d", i),
		Timestamp: time.Unix(1700000000+int64(i), 123),
		Action:    action,
		Filename:  fmt.Sprintf("file-%d", i),
		Outcome:   outcome,
	}
}

func TestTransferLog_AppendOrder(t *testing.T) {
	for name, newLog := range transferLogs(t) {
		t.Run(name, func(t *testing.T) {
			log := newLog()
			defer log.Close()

			records, err := log.Records()
			require.NoError(t, err)
			assert.Empty(t, records)

			in := []entities.TransferRecord{
				record(0, entities.ActionSend, entities.OutcomeSuccess),
				record(1, entities.ActionReceive, entities.OutcomeFailed),
				record(2, entities.ActionDelete, entities.OutcomeSuccess),
			}
			in[0].URL = "http://peer:8000"
			in[0].Size = 10
			in[1].Error = "disk full"

			for _, r := range in {
				require.NoError(t, log.Append(r))
			}

			out, err := log.Records()
			require.NoError(t, err)
			require.Len(t, out, len(in))
			for i := range in {
				assert.Equal(t, in[i].ID, out[i].ID)
				assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp))
				assert.Equal(t, in[i].Action, out[i].Action)
				assert.Equal(t, in[i].Filename, out[i].Filename)
				assert.Equal(t, in[i].Outcome, out[i].Outcome)
				assert.Equal(t, in[i].URL, out[i].URL)
				assert.Equal(t, in[i].Size, out[i].Size)
				assert.Equal(t, in[i].Error, out[i].Error)
			}
		})
	}
}

func TestTransferLog_Clear(t *testing.T) {
	for name, newLog := range transferLogs(t) {
		t.Run(name, func(t *testing.T) {
			log := newLog()
			defer log.Close()

			require.NoError(t, log.Append(record(0, entities.ActionSend, entities.OutcomeSuccess)))
			require.NoError(t, log.Clear())

			records, err := log.Records()
			require.NoError(t, err)
			assert.Empty(t, records)

			require.NoError(t, log.Append(record(1, entities.ActionReceive, entities.OutcomeSuccess)))
			records, err = log.Records()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "id-1", records[0].ID)
		})
	}
}

func TestTransferLog_ConcurrentAppend(t *testing.T) {
	for name, newLog := range transferLogs(t) {
		t.Run(name, func(t *testing.T) {
			log := newLog()
			defer log.Close()

			const n = 50
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, log.Append(record(i, entities.ActionReceive, entities.OutcomeSuccess)))
				}(i)
			}
			wg.Wait()

			records, err := log.Records()
			require.NoError(t, err)
			assert.Len(t, records, n)
		})
	}
}

func TestMemoryTransferLog_RecordsIsCopy(t *testing.T) {
	log := NewMemoryTransferLog()
	require.NoError(t, log.Append(record(0, entities.ActionSend, entities.OutcomeSuccess)))

	records, err := log.Records()
	require.NoError(t, err)
	records[0].Filename = "changed"

	again, err := log.Records()
	require.NoError(t, err)
	assert.Equal(t, "file-0", again[0].Filename)
}

func TestSQLiteTransferLog_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	log, err := NewSQLiteTransferLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(record(0, entities.ActionSend, entities.OutcomeSuccess)))
	require.NoError(t, log.Close())

	reopened, err := NewSQLiteTransferLog(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "id-0", records[0].ID)
}
