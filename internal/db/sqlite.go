package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"backend-skitrack/internal/config"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the local archive database, creating its directory if needed.
// ":memory:" opens a private in-memory database.
func OpenSQLite(cfg config.Config) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling wal: %w", err)
	}
	return conn, nil
}
