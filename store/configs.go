package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConfigStore persists remote-target connection profiles. Credential
// columns always hold ciphertext; encryption happens above this layer.
type ConfigStore struct {
	db *sql.DB
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

const configColumns = `id, provider, name, endpoint, region, bucket, access_key_id, secret_access_key,
	is_enabled, auto_backup, auto_backup_interval, created_at, updated_at, last_backup_at`

// Create inserts a new config with a fresh id and timestamps, returning it.
func (s *ConfigStore) Create(config BackupConfig) (*BackupConfig, error) {
	config.ID = uuid.NewString()
	now := time.Now().UTC()
	config.CreatedAt = now
	config.UpdatedAt = now
	config.LastBackupAt = nil

	_, err := s.db.Exec(
		`INSERT INTO backup_configs (`+configColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.ID, config.Provider, config.Name, config.Endpoint, config.Region, config.Bucket,
		config.AccessKeyID, config.SecretAccessKey, config.IsEnabled, config.AutoBackup,
		config.AutoBackupInterval, config.CreatedAt, config.UpdatedAt, nullTime(config.LastBackupAt),
	)
	if err != nil {
		return nil, fmt.Errorf("create backup config: %w", err)
	}
	return &config, nil
}

// Update overwrites an existing config and refreshes its updated_at.
func (s *ConfigStore) Update(config *BackupConfig) error {
	config.UpdatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`UPDATE backup_configs SET provider = ?, name = ?, endpoint = ?, region = ?, bucket = ?,
		 access_key_id = ?, secret_access_key = ?, is_enabled = ?, auto_backup = ?,
		 auto_backup_interval = ?, updated_at = ? WHERE id = ?`,
		config.Provider, config.Name, config.Endpoint, config.Region, config.Bucket,
		config.AccessKeyID, config.SecretAccessKey, config.IsEnabled, config.AutoBackup,
		config.AutoBackupInterval, config.UpdatedAt, config.ID,
	)
	if err != nil {
		return fmt.Errorf("update backup config %s: %w", config.ID, err)
	}
	return nil
}

// UpdateLastBackupAt records the time of the latest successful backup.
func (s *ConfigStore) UpdateLastBackupAt(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE backup_configs SET last_backup_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("update last backup time for %s: %w", id, err)
	}
	return nil
}

// Delete removes a config. History rows referencing it are left in place.
func (s *ConfigStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM backup_configs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete backup config %s: %w", id, err)
	}
	return nil
}

// GetByID returns the config with the given id, or nil when absent.
func (s *ConfigStore) GetByID(id string) (*BackupConfig, error) {
	row := s.db.QueryRow(`SELECT `+configColumns+` FROM backup_configs WHERE id = ?`, id)
	config, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup config %s: %w", id, err)
	}
	return config, nil
}

// ListAll returns every config ordered by creation time.
func (s *ConfigStore) ListAll() ([]BackupConfig, error) {
	rows, err := s.db.Query(`SELECT ` + configColumns + ` FROM backup_configs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list backup configs: %w", err)
	}
	defer rows.Close()

	var configs []BackupConfig
	for rows.Next() {
		config, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup config: %w", err)
		}
		configs = append(configs, *config)
	}
	return configs, rows.Err()
}

func scanConfig(row rowScanner) (*BackupConfig, error) {
	var config BackupConfig
	var lastBackupAt sql.NullTime
	err := row.Scan(&config.ID, &config.Provider, &config.Name, &config.Endpoint, &config.Region,
		&config.Bucket, &config.AccessKeyID, &config.SecretAccessKey, &config.IsEnabled,
		&config.AutoBackup, &config.AutoBackupInterval, &config.CreatedAt, &config.UpdatedAt,
		&lastBackupAt)
	if err != nil {
		return nil, err
	}
	if lastBackupAt.Valid {
		config.LastBackupAt = &lastBackupAt.Time
	}
	return &config, nil
}
