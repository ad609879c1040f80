package tasket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtsgi/tasket/cloud"
	"github.com/mtsgi/tasket/store"
)

// snapshotServer serves a fixed snapshot for any GET request.
func snapshotServer(t *testing.T, snapshot cloud.Snapshot) *httptest.Server {
	t.Helper()
	payload, err := json.Marshal(snapshot)
	require.NoError(t, err)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
}

func TestRestoreItemsOnlySnapshot(t *testing.T) {
	exported := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	server := snapshotServer(t, cloud.Snapshot{
		// Older snapshots carry only items.
		Version:    3,
		ExportedAt: exported,
		Items: []store.Item{
			{ID: "old-id-1", Title: "imported todo", Type: store.ItemTypeTodo, ScheduledAt: exported, CreatedAt: exported},
			{ID: "old-id-2", Title: "imported expense", Type: store.ItemTypeExpense, Amount: 12.5, ScheduledAt: exported, CreatedAt: exported},
		},
	})
	defer server.Close()

	manager, stores := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	result, err := manager.Restore(context.Background(), config.ID, "tasket-backups/backup.json")
	require.NoError(t, err)
	require.Equal(t, 3, result.Version)
	require.Equal(t, 2, result.ItemCount)

	items, err := stores.Items.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		// Imported items receive fresh identities.
		require.NotEqual(t, "old-id-1", item.ID)
		require.NotEqual(t, "old-id-2", item.ID)
	}

	// The in-memory view is refreshed at the end of the restore.
	require.Len(t, stores.Items.Items(), 2)
}

func TestRestoreReplaysOptionalCollections(t *testing.T) {
	completed := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	weight := 70.1
	server := snapshotServer(t, cloud.Snapshot{
		Version:    BackupDataVersion,
		ExportedAt: time.Now().UTC(),
		Items:      []store.Item{},
		Routines: []store.Routine{
			{ID: "r-1", YearMonth: "2026-03", Title: "stretch", Order: 1},
		},
		RoutineLogs: []store.RoutineLog{
			{ID: "rl-1", RoutineID: "r-1", Date: "2026-03-14", Status: store.RoutineAchieved, CompletedAt: &completed},
			{ID: "rl-2", RoutineID: "r-1", Date: "2026-03-15"},
		},
		DayTitles: []store.DayTitle{
			{ID: "dt-1", Date: "2026-03-14", Title: "pi day"},
		},
		AppSettings: []store.AppSettings{
			{ID: "app-settings", Language: "ja", DarkMode: true},
		},
		HealthData: []store.HealthData{
			{ID: "hd-1", Date: "2026-03-14", Weight: &weight},
		},
	})
	defer server.Close()

	manager, stores := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	_, err = manager.Restore(context.Background(), config.ID, "tasket-backups/backup.json")
	require.NoError(t, err)

	routines, err := stores.Routines.ListAll()
	require.NoError(t, err)
	require.Len(t, routines, 1)
	require.Equal(t, "stretch", routines[0].Title)

	logs, err := stores.RoutineLogs.ListAll()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// A log without a status defaults to unconfirmed.
	require.Equal(t, store.RoutineUnconfirmed, logs[1].Status)

	titles, err := stores.DayTitles.ListAll()
	require.NoError(t, err)
	require.Len(t, titles, 1)

	settings, err := stores.AppSettings.ListAll()
	require.NoError(t, err)
	require.Len(t, settings, 1)
	require.Equal(t, "ja", settings[0].Language)

	health, err := stores.HealthData.ListAll()
	require.NoError(t, err)
	require.Len(t, health, 1)
	require.NotNil(t, health[0].Weight)

	// Replaying the same snapshot upserts instead of duplicating the
	// keyed collections.
	_, err = manager.Restore(context.Background(), config.ID, "tasket-backups/backup.json")
	require.NoError(t, err)

	titles, err = stores.DayTitles.ListAll()
	require.NoError(t, err)
	require.Len(t, titles, 1)

	settings, err = stores.AppSettings.ListAll()
	require.NoError(t, err)
	require.Len(t, settings, 1)

	health, err = stores.HealthData.ListAll()
	require.NoError(t, err)
	require.Len(t, health, 1)
}

func TestRestoreRejectsUnsupportedVersion(t *testing.T) {
	for _, version := range []int{0, BackupDataVersion + 1} {
		server := snapshotServer(t, cloud.Snapshot{Version: version, Items: []store.Item{}})

		manager, _ := newTestManager(t)
		config, err := manager.CreateConfig(s3Input(server.URL))
		require.NoError(t, err)

		_, err = manager.Restore(context.Background(), config.ID, "tasket-backups/backup.json")
		var versionErr *UnsupportedVersionError
		require.ErrorAs(t, err, &versionErr)
		require.Equal(t, version, versionErr.Version)

		server.Close()
	}
}

func TestRestoreDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	manager, stores := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	_, err = manager.Restore(context.Background(), config.ID, "tasket-backups/missing.json")
	require.Error(t, err)

	items, err := stores.Items.ListAll()
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRestoreUnknownConfig(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Restore(context.Background(), "missing", "tasket-backups/backup.json")
	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
}
