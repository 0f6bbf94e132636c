// Package db stores the secret vault in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// memoryPath opens a private in-memory database
const memoryPath = ":memory:"

// DB wraps the SQLite database holding the vault
type DB struct {
	*sql.DB
}

// New opens the vault database at path, creating it readable only by the
// owner, and runs migrations
func New(path string) (*DB, error) {
	if path != memoryPath {
		if err := ensurePrivateFile(path); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// :memory: databases are per-connection
	if path == memoryPath {
		sqlDB.SetMaxOpenConns(1)
	}

	// The TUI and one-shot commands may hold the vault open at the same time
	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	database := &DB{DB: sqlDB}

	if err := database.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.WithField("path", path).Debug("vault database ready")
	return database, nil
}

// ensurePrivateFile creates path with mode 0600, or tightens the mode of an
// existing file; the vault holds plaintext keys
func ensurePrivateFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking database file: %w", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil && !errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("restricting database file: %w", err)
		}
		log.WithField("path", path).Warn("restricted vault database permissions to owner only")
	}
	return nil
}
