package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// RoutineLogStore persists per-day routine completion records.
type RoutineLogStore struct {
	db *sql.DB
}

func NewRoutineLogStore(db *sql.DB) *RoutineLogStore {
	return &RoutineLogStore{db: db}
}

// SaveByCompositeKey upserts a log on its (routineId, date) composite key.
// A provided id is kept for inserts; an existing row keeps its original id.
func (s *RoutineLogStore) SaveByCompositeKey(log *RoutineLog) error {
	if log.RoutineID == "" || log.Date == "" {
		return fmt.Errorf("routine log requires routineId and date")
	}
	id := log.ID
	if id == "" {
		id = uuid.NewString()
	}
	if log.Status == "" {
		log.Status = RoutineUnconfirmed
	}

	_, err := s.db.Exec(
		`INSERT INTO routine_logs (id, routine_id, date, status, completed_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (routine_id, date) DO UPDATE SET status = excluded.status, completed_at = excluded.completed_at`,
		id, log.RoutineID, log.Date, log.Status, nullTime(log.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save routine log %s/%s: %w", log.RoutineID, log.Date, err)
	}
	return nil
}

// ListAll returns every routine log ordered by date.
func (s *RoutineLogStore) ListAll() ([]RoutineLog, error) {
	rows, err := s.db.Query(
		`SELECT id, routine_id, date, status, completed_at FROM routine_logs ORDER BY date`,
	)
	if err != nil {
		return nil, fmt.Errorf("list routine logs: %w", err)
	}
	defer rows.Close()

	var logs []RoutineLog
	for rows.Next() {
		var l RoutineLog
		var completedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.RoutineID, &l.Date, &l.Status, &completedAt); err != nil {
			return nil, fmt.Errorf("scan routine log: %w", err)
		}
		if completedAt.Valid {
			l.CompletedAt = &completedAt.Time
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
