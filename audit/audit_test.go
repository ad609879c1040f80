package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFileLogger(t *testing.T) *FileLogger {
	t.Helper()
	logger, err := NewFileLogger(&Config{
		Enabled: true,
		Type:    FileAuditType,
		Options: map[string]interface{}{
			"file_path": filepath.Join(t.TempDir(), "audit.log"),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestFileLoggerLogAndQuery(t *testing.T) {
	logger := newTestFileLogger(t)

	require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true, ConfigID: "cfg-1"}))
	require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: false, ConfigID: "cfg-2", Error: "upload: 500"}))
	require.NoError(t, logger.Log(Event{Action: ActionRestore, Success: true, ConfigID: "cfg-1"}))

	result, err := logger.Query(QueryOptions{Action: ActionBackup})
	require.NoError(t, err)
	require.Equal(t, 2, result.Filtered)

	success := false
	result, err = logger.Query(QueryOptions{Success: &success})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	require.Equal(t, "cfg-2", result.Events[0].ConfigID)
	require.Equal(t, "upload: 500", result.Events[0].Error)
}

func TestFileLoggerQueryByConfig(t *testing.T) {
	logger := newTestFileLogger(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true, ConfigID: "cfg-1"}))
	}
	require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true, ConfigID: "cfg-2"}))

	result, err := logger.Query(QueryOptions{ConfigID: "cfg-1"})
	require.NoError(t, err)
	require.Equal(t, 3, result.Filtered)
	require.Equal(t, 4, result.TotalCount)
}

func TestFileLoggerLimit(t *testing.T) {
	logger := newTestFileLogger(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true}))
	}

	result, err := logger.Query(QueryOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	require.True(t, result.HasMore)
}

func TestFileLoggerFillsIDAndTimestamp(t *testing.T) {
	logger := newTestFileLogger(t)

	require.NoError(t, logger.Log(Event{Action: ActionTestConnection, Success: true}))

	result, err := logger.Query(QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	require.NotEmpty(t, result.Events[0].ID)
	require.WithinDuration(t, time.Now().UTC(), result.Events[0].Timestamp, time.Minute)
}

func TestFileLoggerUntilOnlyQueryReadsFile(t *testing.T) {
	logger := newTestFileLogger(t)
	logger.cacheSize = 1

	old := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true, ConfigID: "cfg-old", Timestamp: old}))
	require.NoError(t, logger.Log(Event{Action: ActionBackup, Success: true, ConfigID: "cfg-new"}))

	// Only the newest event is cached; an upper bound alone must still see
	// the older event from the file.
	until := time.Now().UTC().Add(time.Hour)
	result, err := logger.Query(QueryOptions{Until: &until})
	require.NoError(t, err)
	require.Equal(t, 2, result.Filtered)

	// A lower bound still narrows the result as before.
	since := time.Now().UTC().Add(-time.Minute)
	result, err = logger.Query(QueryOptions{Since: &since})
	require.NoError(t, err)
	require.Equal(t, 1, result.Filtered)
	require.Equal(t, "cfg-new", result.Events[0].ConfigID)
}

func TestNewLoggerDisabled(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.IsType(t, &NoOpLogger{}, logger)

	logger, err = NewLogger(&Config{Enabled: false, Type: FileAuditType})
	require.NoError(t, err)
	require.IsType(t, &NoOpLogger{}, logger)
}

func TestNewLoggerUnknownType(t *testing.T) {
	_, err := NewLogger(&Config{Enabled: true, Type: "database"})
	require.Error(t, err)
}
