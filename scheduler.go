package tasket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mtsgi/tasket/store"
)

// Scheduler runs automatic backups for configs that ask for them. Each
// enabled config with a positive interval gets a cron entry firing every
// interval; a fire is skipped while the last successful backup is still
// fresh, so restarts do not trigger spurious uploads.
type Scheduler struct {
	manager *Manager
	log     zerolog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[string]scheduleEntry
	started bool
}

// scheduleEntry remembers the interval an entry was registered with so a
// changed interval replaces the entry on the next reload.
type scheduleEntry struct {
	id       cron.EntryID
	interval int
}

func NewScheduler(manager *Manager, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		manager: manager,
		log:     logger,
		cron:    cron.New(),
		entries: make(map[string]scheduleEntry),
	}
}

// Start schedules all eligible configs and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.Reload(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	return nil
}

// Reload re-syncs the cron entries with the stored configs. Call it after
// config changes so new intervals take effect without a restart.
func (s *Scheduler) Reload() error {
	configs, err := s.manager.Configs()
	if err != nil {
		return fmt.Errorf("load configs: %w", err)
	}

	eligible := make(map[string]store.BackupConfig)
	for _, config := range configs {
		if config.IsEnabled && config.AutoBackup && config.AutoBackupInterval > 0 {
			eligible[config.ID] = config
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		config, ok := eligible[id]
		if ok && config.AutoBackupInterval == entry.interval {
			continue
		}
		s.cron.Remove(entry.id)
		delete(s.entries, id)
	}

	for id, config := range eligible {
		if _, ok := s.entries[id]; ok {
			continue
		}
		configID := id
		spec := fmt.Sprintf("@every %dh", config.AutoBackupInterval)
		entryID, err := s.cron.AddFunc(spec, func() { s.runAutoBackup(configID) })
		if err != nil {
			return fmt.Errorf("schedule config %s: %w", id, err)
		}
		s.entries[id] = scheduleEntry{id: entryID, interval: config.AutoBackupInterval}
		s.log.Info().Str("config", id).Int("interval_hours", config.AutoBackupInterval).Msg("auto backup scheduled")
	}
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) runAutoBackup(configID string) {
	config, err := s.manager.Config(configID)
	if err != nil {
		s.log.Warn().Err(err).Str("config", configID).Msg("auto backup skipped")
		return
	}
	if !s.isDue(config) {
		return
	}

	if _, err := s.manager.Backup(context.Background(), configID, store.BackupAuto); err != nil {
		// The failure is already recorded in the history.
		s.log.Warn().Err(err).Str("config", configID).Msg("auto backup failed")
	}
}

// isDue reports whether the interval has elapsed since the last
// successful backup.
func (s *Scheduler) isDue(config *store.BackupConfig) bool {
	if config.LastBackupAt == nil {
		return true
	}
	interval := time.Duration(config.AutoBackupInterval) * time.Hour
	return time.Since(*config.LastBackupAt) >= interval
}
