package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HistoryStore persists backup attempt records.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const historyColumns = `id, config_id, status, type, size, item_count, error, remote_path, created_at`

// Create inserts a new history row, assigning id and creation time.
func (s *HistoryStore) Create(h BackupHistory) (*BackupHistory, error) {
	h.ID = uuid.NewString()
	h.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO backup_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.ConfigID, h.Status, h.Type, h.Size, h.ItemCount, h.Error, h.RemotePath, h.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup history: %w", err)
	}
	return &h, nil
}

// Update overwrites the mutable fields of a history row. Callers apply it
// once per row, to move an in-progress attempt to its terminal state.
func (s *HistoryStore) Update(h *BackupHistory) error {
	_, err := s.db.Exec(
		`UPDATE backup_history SET status = ?, size = ?, item_count = ?, error = ?, remote_path = ?
		 WHERE id = ?`,
		h.Status, h.Size, h.ItemCount, h.Error, h.RemotePath, h.ID,
	)
	if err != nil {
		return fmt.Errorf("update backup history %s: %w", h.ID, err)
	}
	return nil
}

// ListAll returns every history row, newest first.
func (s *HistoryStore) ListAll() ([]BackupHistory, error) {
	return s.list(`SELECT ` + historyColumns + ` FROM backup_history ORDER BY created_at DESC`)
}

// ListByConfig returns the history rows for one config, newest first.
func (s *HistoryStore) ListByConfig(configID string) ([]BackupHistory, error) {
	return s.list(`SELECT `+historyColumns+` FROM backup_history WHERE config_id = ? ORDER BY created_at DESC`, configID)
}

func (s *HistoryStore) list(query string, args ...interface{}) ([]BackupHistory, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backup history: %w", err)
	}
	defer rows.Close()

	var out []BackupHistory
	for rows.Next() {
		var h BackupHistory
		if err := rows.Scan(&h.ID, &h.ConfigID, &h.Status, &h.Type, &h.Size, &h.ItemCount,
			&h.Error, &h.RemotePath, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
