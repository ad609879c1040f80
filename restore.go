package tasket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mtsgi/tasket/audit"
	"github.com/mtsgi/tasket/cloud"
	"github.com/mtsgi/tasket/store"
)

// RestoreResult summarizes what a restore imported.
type RestoreResult struct {
	Version   int
	ItemCount int
}

// Restore downloads a snapshot from a config's remote target and replays
// it into the local database.
//
// Items are imported through the regular create path and receive new
// identities; the optional collections upsert on their natural keys, so
// restoring on top of existing data merges rather than duplicates them.
// The replay is not transactional: on failure a PartialRestoreError names
// the collection that stopped it and everything imported before that point
// stays in place.
func (m *Manager) Restore(ctx context.Context, configID, remotePath string) (*RestoreResult, error) {
	config, err := m.Config(configID)
	if err != nil {
		return nil, err
	}

	unlock := m.lockConfig(configID)
	defer unlock()

	result, err := m.runRestore(ctx, config, remotePath)
	m.auditEvent(audit.Event{
		Action:     audit.ActionRestore,
		Success:    err == nil,
		Error:      errString(err),
		ConfigID:   configID,
		Provider:   string(config.Provider),
		RemotePath: remotePath,
	})
	if err != nil {
		m.log.Error().Err(err).Str("config", configID).Str("remote_path", remotePath).Msg("restore failed")
		return nil, err
	}

	m.log.Info().
		Str("config", configID).
		Str("remote_path", remotePath).
		Int("items", result.ItemCount).
		Msg("restore completed")
	return result, nil
}

func (m *Manager) runRestore(ctx context.Context, config *store.BackupConfig, remotePath string) (*RestoreResult, error) {
	adapter, err := m.adapterFor(config)
	if err != nil {
		return nil, err
	}

	payload, err := adapter.Download(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	var snapshot cloud.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Version < 1 || snapshot.Version > BackupDataVersion {
		return nil, &UnsupportedVersionError{Version: snapshot.Version}
	}

	if err := m.importSnapshot(&snapshot); err != nil {
		return nil, err
	}

	// Refresh the item cache so callers see the restored data.
	if err := m.stores.Items.Load(); err != nil {
		return nil, err
	}

	return &RestoreResult{Version: snapshot.Version, ItemCount: len(snapshot.Items)}, nil
}

func (m *Manager) importSnapshot(snapshot *cloud.Snapshot) error {
	for _, item := range snapshot.Items {
		_, err := m.stores.Items.Create(store.ItemFields{
			Title:       item.Title,
			Amount:      item.Amount,
			Type:        item.Type,
			IsCompleted: item.IsCompleted,
			ScheduledAt: item.ScheduledAt,
			ExecutedAt:  item.ExecutedAt,
			Notes:       item.Notes,
			MealLog:     item.MealLog,
		})
		if err != nil {
			return &PartialRestoreError{Collection: "items", Err: err}
		}
	}

	for _, routine := range snapshot.Routines {
		_, err := m.stores.Routines.Create(store.RoutineFields{
			Title:     routine.Title,
			YearMonth: routine.YearMonth,
			Order:     routine.Order,
		})
		if err != nil {
			return &PartialRestoreError{Collection: "routines", Err: err}
		}
	}

	for _, log := range snapshot.RoutineLogs {
		entry := log
		if entry.Status == "" {
			entry.Status = store.RoutineUnconfirmed
		}
		if err := m.stores.RoutineLogs.SaveByCompositeKey(&entry); err != nil {
			return &PartialRestoreError{Collection: "routineLogs", Err: err}
		}
	}

	for _, dayTitle := range snapshot.DayTitles {
		if err := m.stores.DayTitles.Save(dayTitle.Date, dayTitle.Title); err != nil {
			return &PartialRestoreError{Collection: "dayTitles", Err: err}
		}
	}

	for _, settings := range snapshot.AppSettings {
		entry := settings
		if err := m.stores.AppSettings.Save(&entry); err != nil {
			return &PartialRestoreError{Collection: "appSettings", Err: err}
		}
	}

	for _, record := range snapshot.HealthData {
		entry := record
		if err := m.stores.HealthData.Save(&entry); err != nil {
			return &PartialRestoreError{Collection: "healthData", Err: err}
		}
	}

	return nil
}
