package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ItemStore persists calendar items. Besides plain CRUD it keeps a cached
// in-memory view (Load/Items) that mirrors what the UI layer renders; the
// restore path refreshes it after replaying a snapshot.
type ItemStore struct {
	db *sql.DB

	mu     sync.RWMutex
	cached []Item
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// ItemFields are the caller-supplied fields for a new item. The store
// assigns identity and creation time.
type ItemFields struct {
	Title       string
	Amount      float64
	Type        ItemType
	IsCompleted bool
	ScheduledAt time.Time
	ExecutedAt  *time.Time
	Notes       string
	MealLog     *MealLog
}

// Create inserts a new item with a fresh id and returns it.
func (s *ItemStore) Create(fields ItemFields) (*Item, error) {
	item := Item{
		ID:          uuid.NewString(),
		Title:       fields.Title,
		Amount:      fields.Amount,
		Type:        fields.Type,
		IsCompleted: fields.IsCompleted,
		ScheduledAt: fields.ScheduledAt,
		ExecutedAt:  fields.ExecutedAt,
		CreatedAt:   time.Now().UTC(),
		Notes:       fields.Notes,
		MealLog:     fields.MealLog,
	}

	mealLog, err := marshalMealLog(item.MealLog)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO items (id, title, amount, type, is_completed, scheduled_at, executed_at, created_at, notes, meal_log)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Amount, item.Type, item.IsCompleted,
		item.ScheduledAt, nullTime(item.ExecutedAt), item.CreatedAt, item.Notes, mealLog,
	)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

// Update overwrites an existing item.
func (s *ItemStore) Update(item *Item) error {
	mealLog, err := marshalMealLog(item.MealLog)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE items SET title = ?, amount = ?, type = ?, is_completed = ?, scheduled_at = ?, executed_at = ?, notes = ?, meal_log = ?
		 WHERE id = ?`,
		item.Title, item.Amount, item.Type, item.IsCompleted,
		item.ScheduledAt, nullTime(item.ExecutedAt), item.Notes, mealLog, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	return nil
}

// Delete removes an item by id.
func (s *ItemStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// GetByID returns the item with the given id, or nil when absent.
func (s *ItemStore) GetByID(id string) (*Item, error) {
	row := s.db.QueryRow(
		`SELECT id, title, amount, type, is_completed, scheduled_at, executed_at, created_at, notes, meal_log
		 FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// ListAll returns every item ordered by scheduled time.
func (s *ItemStore) ListAll() ([]Item, error) {
	return s.list(`SELECT id, title, amount, type, is_completed, scheduled_at, executed_at, created_at, notes, meal_log
		 FROM items ORDER BY scheduled_at`)
}

// ListByDateRange returns items scheduled in [start, end).
func (s *ItemStore) ListByDateRange(start, end time.Time) ([]Item, error) {
	return s.list(`SELECT id, title, amount, type, is_completed, scheduled_at, executed_at, created_at, notes, meal_log
		 FROM items WHERE scheduled_at >= ? AND scheduled_at < ? ORDER BY scheduled_at`, start, end)
}

// Load refreshes the cached in-memory view from the database.
func (s *ItemStore) Load() error {
	items, err := s.ListAll()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = items
	s.mu.Unlock()
	return nil
}

// Items returns a copy of the cached in-memory view. Call Load first (or
// after a restore) to populate it.
func (s *ItemStore) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.cached))
	copy(out, s.cached)
	return out
}

func (s *ItemStore) list(query string, args ...interface{}) ([]Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var executedAt sql.NullTime
	var mealLog sql.NullString
	err := row.Scan(&item.ID, &item.Title, &item.Amount, &item.Type, &item.IsCompleted,
		&item.ScheduledAt, &executedAt, &item.CreatedAt, &item.Notes, &mealLog)
	if err != nil {
		return nil, err
	}
	if executedAt.Valid {
		item.ExecutedAt = &executedAt.Time
	}
	if mealLog.Valid && mealLog.String != "" {
		var ml MealLog
		if err := json.Unmarshal([]byte(mealLog.String), &ml); err != nil {
			return nil, fmt.Errorf("decode meal log: %w", err)
		}
		item.MealLog = &ml
	}
	return &item, nil
}

func marshalMealLog(ml *MealLog) (sql.NullString, error) {
	if ml == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ml)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode meal log: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
