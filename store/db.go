package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens the SQLite database at the given path and applies pending
// migrations. Pass ":memory:" for an ephemeral database.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// Stores bundles every record store over a single database handle.
type Stores struct {
	Items       *ItemStore
	Routines    *RoutineStore
	RoutineLogs *RoutineLogStore
	DayTitles   *DayTitleStore
	AppSettings *AppSettingsStore
	HealthData  *HealthDataStore
	Configs     *ConfigStore
	History     *HistoryStore
	Prefs       *PrefStore

	db *sql.DB
}

// NewStores wires all record stores to db.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Items:       NewItemStore(db),
		Routines:    NewRoutineStore(db),
		RoutineLogs: NewRoutineLogStore(db),
		DayTitles:   NewDayTitleStore(db),
		AppSettings: NewAppSettingsStore(db),
		HealthData:  NewHealthDataStore(db),
		Configs:     NewConfigStore(db),
		History:     NewHistoryStore(db),
		Prefs:       NewPrefStore(db),
		db:          db,
	}
}

// Close closes the underlying database handle.
func (s *Stores) Close() error {
	return s.db.Close()
}
