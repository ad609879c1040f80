package store

import (
	"database/sql"
	"fmt"
)

// PrefStore holds small named binary values that are not user data, such as
// the persisted encryption key.
type PrefStore struct {
	db *sql.DB
}

func NewPrefStore(db *sql.DB) *PrefStore {
	return &PrefStore{db: db}
}

// Get returns the value stored under name. The second return reports
// whether the name was present.
func (s *PrefStore) Get(name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM app_prefs WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get pref %s: %w", name, err)
	}
	return value, true, nil
}

// Set stores value under name, replacing any previous value.
func (s *PrefStore) Set(name string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO app_prefs (name, value) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("set pref %s: %w", name, err)
	}
	return nil
}

// Delete removes the value stored under name. Deleting an absent name is
// not an error.
func (s *PrefStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM app_prefs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete pref %s: %w", name, err)
	}
	return nil
}
