package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppSettingsStore persists application settings records. Rows are stored
// as a JSON payload keyed by id; Save upserts by id.
type AppSettingsStore struct {
	db *sql.DB
}

func NewAppSettingsStore(db *sql.DB) *AppSettingsStore {
	return &AppSettingsStore{db: db}
}

// Save upserts a settings record by id.
func (s *AppSettingsStore) Save(settings *AppSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode app settings: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO app_settings (id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		settings.ID, string(payload), settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save app settings %s: %w", settings.ID, err)
	}
	return nil
}

// ListAll returns every settings record.
func (s *AppSettingsStore) ListAll() ([]AppSettings, error) {
	rows, err := s.db.Query(`SELECT payload FROM app_settings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list app settings: %w", err)
	}
	defer rows.Close()

	var out []AppSettings
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan app settings: %w", err)
		}
		var settings AppSettings
		if err := json.Unmarshal([]byte(payload), &settings); err != nil {
			return nil, fmt.Errorf("decode app settings: %w", err)
		}
		out = append(out, settings)
	}
	return out, rows.Err()
}
