// Package sqlite stores execution-service run history in SQLite through
// the ncruces WebAssembly driver, so no cgo toolchain is needed.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/polypad/internal/history"
	"github.com/zjrosen/polypad/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	guid        TEXT    NOT NULL UNIQUE,
	language    TEXT    NOT NULL,
	code_hash   TEXT    NOT NULL,
	code_bytes  INTEGER NOT NULL,
	status      TEXT    NOT NULL,
	cache_hit   INTEGER NOT NULL DEFAULT 0,
	duration_ns INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_language ON runs (language);
`

// DB is an open history database.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path and ensures the
// schema exists. Parent directories are created with 0700.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.ErrorErr(log.CatDB, "open database failed", err, "path", path)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "ping database failed", err, "path", path)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.Info(log.CatDB, "history database ready", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Runs returns the run repository backed by this database.
func (d *DB) Runs() history.Repository {
	return newRunRepository(d.conn)
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}
