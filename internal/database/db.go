package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the database connection and provides initialization
type DB struct {
	*sql.DB
}

// NewDB creates and initializes a new database connection
func NewDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// harvests write from a single goroutine; one connection also keeps
	// :memory: databases from splitting per connection
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}

	if err := db.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the database tables and indexes
func (db *DB) initSchema() error {
	schema := `
-- One row per harvesting run
CREATE TABLE IF NOT EXISTS harvest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL UNIQUE,
    source_url TEXT NOT NULL,
    candidates INTEGER NOT NULL DEFAULT 0,
    working INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_harvest_runs_finished_at ON harvest_runs(finished_at);

-- One row per probe
CREATE TABLE IF NOT EXISTS proxy_checks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    address TEXT NOT NULL,
    status TEXT NOT NULL, -- healthy, unhealthy, timeout, error
    response_time_ms INTEGER,
    error_message TEXT,
    checked_at DATETIME NOT NULL,

    FOREIGN KEY (run_id) REFERENCES harvest_runs (run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_proxy_checks_address ON proxy_checks(address);
CREATE INDEX IF NOT EXISTS idx_proxy_checks_run_id ON proxy_checks(run_id);
CREATE INDEX IF NOT EXISTS idx_proxy_checks_checked_at ON proxy_checks(checked_at);`

	_, err := db.Exec(schema)
	return err
}
