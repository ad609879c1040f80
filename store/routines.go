package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoutineStore persists monthly routine definitions.
type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

// RoutineFields are the caller-supplied fields for a new routine.
type RoutineFields struct {
	Title     string
	YearMonth string
	Order     int
}

// Create inserts a new routine with a fresh id and returns it.
func (s *RoutineStore) Create(fields RoutineFields) (*Routine, error) {
	routine := Routine{
		ID:        uuid.NewString(),
		YearMonth: fields.YearMonth,
		Title:     fields.Title,
		Order:     fields.Order,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO routines (id, year_month, title, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		routine.ID, routine.YearMonth, routine.Title, routine.Order, routine.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create routine: %w", err)
	}
	return &routine, nil
}

// ListAll returns every routine ordered by month and display order.
func (s *RoutineStore) ListAll() ([]Routine, error) {
	rows, err := s.db.Query(
		`SELECT id, year_month, title, sort_order, created_at FROM routines ORDER BY year_month, sort_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []Routine
	for rows.Next() {
		var r Routine
		if err := rows.Scan(&r.ID, &r.YearMonth, &r.Title, &r.Order, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}
