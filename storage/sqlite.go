package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the SQLite database connection used for rule persistence.
type SQLite struct {
	DB     *sql.DB
	Path   string
	Logger *zap.SugaredLogger
}

// validateDatabasePath rejects paths with traversal sequences before they
// reach the filesystem.
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if dbPath == ":memory:" {
		return nil
	}
	if strings.Contains(dbPath, "..") {
		return fmt.Errorf("path traversal detected: '..' not allowed in database path")
	}
	return nil
}

// NewSQLite opens a SQLite database at the given path, creating the parent
// directory if needed, and configures WAL mode with a busy timeout.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WAL mode supports concurrent readers with a single writer. In-memory
	// databases use "memory" journal mode instead, so only warn there.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	s := &SQLite{
		DB:     db,
		Path:   dbPath,
		Logger: logger,
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("SQLite database opened at %s", dbPath)
	return s, nil
}

// migrate creates the schema if it does not exist.
func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rules (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		enabled          INTEGER NOT NULL DEFAULT 1,
		priority         INTEGER NOT NULL,
		conditions       TEXT NOT NULL DEFAULT '[]',
		actions          TEXT NOT NULL DEFAULT '[]',
		author           TEXT NOT NULL DEFAULT '',
		tags             TEXT NOT NULL DEFAULT '[]',
		mitre_tactics    TEXT NOT NULL DEFAULT '[]',
		mitre_techniques TEXT NOT NULL DEFAULT '[]',
		rule_references  TEXT NOT NULL DEFAULT '[]',
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(enabled);
	`
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create rules table: %w", err)
	}
	return nil
}

// conn returns the database handle, or ErrDatabaseClosed after Close.
func (s *SQLite) conn() (*sql.DB, error) {
	if s.DB == nil {
		return nil, ErrDatabaseClosed
	}
	return s.DB, nil
}

// Close closes the database connection. Operations issued afterwards fail
// with ErrDatabaseClosed.
func (s *SQLite) Close() error {
	if s.DB == nil {
		return nil
	}
	err := s.DB.Close()
	s.DB = nil
	return err
}
