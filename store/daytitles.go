package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayTitleStore persists the per-day headline, one row per date.
type DayTitleStore struct {
	db *sql.DB
}

func NewDayTitleStore(db *sql.DB) *DayTitleStore {
	return &DayTitleStore{db: db}
}

// Save upserts the title for a date.
func (s *DayTitleStore) Save(date, title string) error {
	if date == "" {
		return fmt.Errorf("day title requires a date")
	}
	_, err := s.db.Exec(
		`INSERT INTO day_titles (id, date, title, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (date) DO UPDATE SET title = excluded.title`,
		uuid.NewString(), date, title, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save day title %s: %w", date, err)
	}
	return nil
}

// GetByDate returns the title row for a date, or nil when absent.
func (s *DayTitleStore) GetByDate(date string) (*DayTitle, error) {
	var dt DayTitle
	err := s.db.QueryRow(
		`SELECT id, date, title, created_at FROM day_titles WHERE date = ?`, date,
	).Scan(&dt.ID, &dt.Date, &dt.Title, &dt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day title %s: %w", date, err)
	}
	return &dt, nil
}

// ListAll returns every day title ordered by date.
func (s *DayTitleStore) ListAll() ([]DayTitle, error) {
	rows, err := s.db.Query(`SELECT id, date, title, created_at FROM day_titles ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list day titles: %w", err)
	}
	defer rows.Close()

	var titles []DayTitle
	for rows.Next() {
		var dt DayTitle
		if err := rows.Scan(&dt.ID, &dt.Date, &dt.Title, &dt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan day title: %w", err)
		}
		titles = append(titles, dt)
	}
	return titles, rows.Err()
}
