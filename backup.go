package tasket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mtsgi/tasket/audit"
	"github.com/mtsgi/tasket/cloud"
	"github.com/mtsgi/tasket/store"
)

// BackupDataVersion is the snapshot format version written by this build.
const BackupDataVersion = 7

// backupFilename returns "tasket-backup-<yyyy-mm-dd>-<unix-ms>.json".
func backupFilename(now time.Time) string {
	return fmt.Sprintf("tasket-backup-%s-%d.json", now.Format("2006-01-02"), now.UnixMilli())
}

// Backup exports all user data, uploads it to the config's remote target
// and records the attempt in the backup history.
//
// A history row is created in-progress before any data is read or sent and
// transitions exactly once to success or failed, so an interrupted run is
// visible rather than silently absent. The config's last-backup time only
// moves on success. The returned history row reflects the terminal state
// even when an error is also returned.
func (m *Manager) Backup(ctx context.Context, configID string, backupType store.BackupType) (*store.BackupHistory, error) {
	config, err := m.Config(configID)
	if err != nil {
		return nil, err
	}

	unlock := m.lockConfig(configID)
	defer unlock()

	history, err := m.stores.History.Create(store.BackupHistory{
		ConfigID: configID,
		Status:   store.BackupInProgress,
		Type:     backupType,
	})
	if err != nil {
		return nil, fmt.Errorf("record backup start: %w", err)
	}

	remotePath, size, itemCount, err := m.runBackup(ctx, config)
	if err != nil {
		history.Status = store.BackupFailed
		history.Error = err.Error()
		if updateErr := m.stores.History.Update(history); updateErr != nil {
			m.log.Error().Err(updateErr).Str("history", history.ID).Msg("failed to record backup failure")
		}
		m.auditEvent(audit.Event{
			Action:   audit.ActionBackup,
			Success:  false,
			Error:    err.Error(),
			ConfigID: configID,
			Provider: string(config.Provider),
		})
		m.log.Error().Err(err).Str("config", configID).Str("type", string(backupType)).Msg("backup failed")
		return history, err
	}

	history.Status = store.BackupSuccess
	history.Size = size
	history.ItemCount = itemCount
	history.RemotePath = remotePath
	if err := m.stores.History.Update(history); err != nil {
		return history, fmt.Errorf("record backup result: %w", err)
	}
	if err := m.stores.Configs.UpdateLastBackupAt(configID, time.Now().UTC()); err != nil {
		return history, err
	}

	m.auditEvent(audit.Event{
		Action:     audit.ActionBackup,
		Success:    true,
		ConfigID:   configID,
		Provider:   string(config.Provider),
		RemotePath: remotePath,
	})
	m.log.Info().
		Str("config", configID).
		Str("type", string(backupType)).
		Str("remote_path", remotePath).
		Int64("size", size).
		Int("items", itemCount).
		Msg("backup completed")
	return history, nil
}

// runBackup collects the snapshot and pushes it to the remote target.
func (m *Manager) runBackup(ctx context.Context, config *store.BackupConfig) (remotePath string, size int64, itemCount int, err error) {
	snapshot, err := m.collectSnapshot()
	if err != nil {
		return "", 0, 0, err
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", 0, 0, fmt.Errorf("serialize snapshot: %w", err)
	}

	adapter, err := m.adapterFor(config)
	if err != nil {
		return "", 0, 0, err
	}

	remotePath, err = adapter.Upload(ctx, backupFilename(time.Now()), payload)
	if err != nil {
		return "", 0, 0, err
	}
	return remotePath, int64(len(payload)), len(snapshot.Items), nil
}

// collectSnapshot reads every collection into a fresh snapshot. The item
// cache is refreshed first so the snapshot matches what the user sees.
func (m *Manager) collectSnapshot() (*cloud.Snapshot, error) {
	if err := m.stores.Items.Load(); err != nil {
		return nil, err
	}
	items := m.stores.Items.Items()

	routines, err := m.stores.Routines.ListAll()
	if err != nil {
		return nil, err
	}
	routineLogs, err := m.stores.RoutineLogs.ListAll()
	if err != nil {
		return nil, err
	}
	dayTitles, err := m.stores.DayTitles.ListAll()
	if err != nil {
		return nil, err
	}
	appSettings, err := m.stores.AppSettings.ListAll()
	if err != nil {
		return nil, err
	}
	healthData, err := m.stores.HealthData.ListAll()
	if err != nil {
		return nil, err
	}

	return &cloud.Snapshot{
		Version:     BackupDataVersion,
		ExportedAt:  time.Now().UTC(),
		Items:       items,
		Routines:    routines,
		RoutineLogs: routineLogs,
		DayTitles:   dayTitles,
		AppSettings: appSettings,
		HealthData:  healthData,
	}, nil
}
