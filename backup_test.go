package tasket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtsgi/tasket/cloud"
	"github.com/mtsgi/tasket/store"
)

func TestBackupFilenameFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	name := backupFilename(now)
	require.Equal(t, "tasket-backup-2026-03-14-1773478800000.json", name)
	require.Regexp(t, regexp.MustCompile(`^tasket-backup-\d{4}-\d{2}-\d{2}-\d+\.json$`), name)
}

func TestBackupSuccess(t *testing.T) {
	var uploadedPath string
	var uploadedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		uploadedPath = r.URL.Path
		uploadedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	manager, stores := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	for _, title := range []string{"buy milk", "pay rent"} {
		_, err := stores.Items.Create(store.ItemFields{
			Title:       title,
			Type:        store.ItemTypeTodo,
			ScheduledAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	history, err := manager.Backup(context.Background(), config.ID, store.BackupManual)
	require.NoError(t, err)
	require.Equal(t, store.BackupSuccess, history.Status)
	require.Equal(t, store.BackupManual, history.Type)
	require.Equal(t, 2, history.ItemCount)
	require.Equal(t, int64(len(uploadedBody)), history.Size)
	require.True(t, strings.HasPrefix(history.RemotePath, "tasket-backups/tasket-backup-"))
	require.True(t, strings.HasPrefix(uploadedPath, "/my-bucket/tasket-backups/"))

	var snapshot cloud.Snapshot
	require.NoError(t, json.Unmarshal(uploadedBody, &snapshot))
	require.Equal(t, BackupDataVersion, snapshot.Version)
	require.Len(t, snapshot.Items, 2)

	updated, err := manager.Config(config.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastBackupAt)
	require.WithinDuration(t, time.Now().UTC(), *updated.LastBackupAt, time.Minute)
}

func TestBackupFailureRecordsHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	manager, stores := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	history, err := manager.Backup(context.Background(), config.ID, store.BackupAuto)
	require.Error(t, err)
	require.NotNil(t, history)
	require.Equal(t, store.BackupFailed, history.Status)
	require.Contains(t, history.Error, "quota exceeded")

	// The persisted row carries the terminal state too.
	rows, err := stores.History.ListByConfig(config.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, store.BackupFailed, rows[0].Status)

	// A failed backup never moves the last-backup time.
	updated, err := manager.Config(config.ID)
	require.NoError(t, err)
	require.Nil(t, updated.LastBackupAt)
}

func TestBackupUnknownConfig(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Backup(context.Background(), "missing", store.BackupManual)
	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestBackupEmptyDatabase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	manager, _ := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	history, err := manager.Backup(context.Background(), config.ID, store.BackupManual)
	require.NoError(t, err)
	require.Equal(t, store.BackupSuccess, history.Status)
	require.Equal(t, 0, history.ItemCount)
	require.Greater(t, history.Size, int64(0))
}
