package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HealthDataStore persists daily health measurements. Rows are stored as a
// JSON payload with the date broken out for range queries; Save upserts by id.
type HealthDataStore struct {
	db *sql.DB
}

func NewHealthDataStore(db *sql.DB) *HealthDataStore {
	return &HealthDataStore{db: db}
}

// Save upserts a health record by id.
func (s *HealthDataStore) Save(record *HealthData) error {
	if record.Date == "" {
		return fmt.Errorf("health data requires a date")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode health data: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO health_data (id, date, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET date = excluded.date, payload = excluded.payload, updated_at = excluded.updated_at`,
		record.ID, record.Date, string(payload), record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save health data %s: %w", record.ID, err)
	}
	return nil
}

// ListAll returns every health record ordered by date.
func (s *HealthDataStore) ListAll() ([]HealthData, error) {
	rows, err := s.db.Query(`SELECT payload FROM health_data ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list health data: %w", err)
	}
	defer rows.Close()

	var out []HealthData
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan health data: %w", err)
		}
		var record HealthData
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("decode health data: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
